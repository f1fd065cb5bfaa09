package errors

import (
	stderrors "errors"
	"testing"
)

func TestWrapNilIsNil(t *testing.T) {
	if err := Wrap(IOFailure, "copy", "/tmp/x", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestKindOf(t *testing.T) {
	err := Wrap(DeviceAccess, "list device", "/mnt/camera", stderrors.New("no such device"))
	if KindOf(err) != DeviceAccess {
		t.Fatalf("kind = %s", KindOf(err))
	}
	if KindOf(stderrors.New("plain")) != Internal {
		t.Fatalf("plain error kind = %s", KindOf(stderrors.New("plain")))
	}
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(IOFailure, "write", "/photos/a.jpg", cause)
	if !stderrors.Is(err, cause) {
		t.Fatal("wrapped cause not reachable via errors.Is")
	}
}

func TestUserMessage(t *testing.T) {
	err := Wrap(DeviceAccess, "list device", "/mnt/camera", stderrors.New("gone"))
	if got := UserMessage(err); got != "Device not accessible: /mnt/camera" {
		t.Fatalf("message = %q", got)
	}
}
