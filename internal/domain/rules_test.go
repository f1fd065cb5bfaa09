package domain

import (
	"testing"
	"time"
)

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"IMG_0001.jpg", "IMG_0001.jpg"},
		{"clip: take 2?.mov", "clip_ take 2_.mov"},
		{"trailing dots...", "trailing dots"},
		{"CON.jpg", "_CON.jpg"},
		{"lpt1.mp4", "_lpt1.mp4"},
		{"console.jpg", "console.jpg"},
		{"", "file"},
		{"...", "file"},
	}
	for _, c := range cases {
		if got := SanitizeFilename(c.in, "file"); got != c.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSanitizeRelPath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"DCIM/100APPLE/IMG_0001.jpg", "DCIM/100APPLE/IMG_0001.jpg"},
		{`DCIM\100APPLE\IMG_0001.jpg`, "DCIM/100APPLE/IMG_0001.jpg"},
		{"DCIM//IMG_0001.jpg", "DCIM/IMG_0001.jpg"},
		{"CON/IMG_0001.jpg", "_CON/IMG_0001.jpg"},
	}
	for _, c := range cases {
		if got := SanitizeRelPath(c.in); got != c.want {
			t.Errorf("SanitizeRelPath(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestMonthFolder(t *testing.T) {
	names := DefaultMonthNames()
	taken := time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)
	if got := MonthFolder(taken, names); got != "2025/03-March" {
		t.Fatalf("MonthFolder = %q", got)
	}
	december := time.Date(1999, 12, 31, 23, 59, 0, 0, time.UTC)
	if got := MonthFolder(december, names); got != "1999/12-December" {
		t.Fatalf("MonthFolder = %q", got)
	}
}

func TestSuffixedName(t *testing.T) {
	cases := []struct {
		name string
		n    int
		want string
	}{
		{"IMG_0001.jpg", 1, "IMG_0001_1.jpg"},
		{"IMG_0001.jpg", 12, "IMG_0001_12.jpg"},
		{"archive.tar.gz", 1, "archive.tar_1.gz"},
		{"noext", 2, "noext_2"},
	}
	for _, c := range cases {
		if got := SuffixedName(c.name, c.n); got != c.want {
			t.Errorf("SuffixedName(%q, %d) = %q, want %q", c.name, c.n, got, c.want)
		}
	}
}

func TestExtensionSetKind(t *testing.T) {
	exts := NewExtensionSet([]string{".jpg", "heic"}, []string{".MP4"})
	cases := []struct {
		name string
		want Kind
	}{
		{"IMG_0001.JPG", KindPhoto},
		{"IMG_0002.heic", KindPhoto},
		{"clip.mp4", KindVideo},
		{"notes.txt", KindOther},
		{"no-extension", KindOther},
	}
	for _, c := range cases {
		if got := exts.Kind(c.name); got != c.want {
			t.Errorf("Kind(%q) = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestFingerprintIdentity(t *testing.T) {
	desc := FileDescriptor{
		Path:    "DCIM/IMG_0001.jpg",
		Name:    "IMG_0001.jpg",
		Size:    42,
		ModTime: time.Unix(1700000000, 0),
	}
	if got := FingerprintIdentity(desc); got != "fp:DCIM/IMG_0001.jpg|42|1700000000" {
		t.Fatalf("FingerprintIdentity = %q", got)
	}
}
