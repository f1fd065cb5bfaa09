package errors

import "fmt"

type Kind string

const (
	InvalidConfig      Kind = "invalid_config"
	DeviceAccess       Kind = "device_access"
	MetadataParse      Kind = "metadata_parse"
	LedgerCorruption   Kind = "ledger_corruption"
	CollisionExhausted Kind = "collision_exhausted"
	CopyIntegrity      Kind = "copy_integrity"
	ToolMissing        Kind = "tool_missing"
	ToolFailure        Kind = "tool_failure"
	IOFailure          Kind = "io_failure"
	Internal           Kind = "internal"
)

type AppError struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *AppError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func Wrap(kind Kind, op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Kind: kind,
		Op:   op,
		Path: path,
		Err:  err,
	}
}

func New(kind Kind, op, path, msg string) error {
	return &AppError{
		Kind: kind,
		Op:   op,
		Path: path,
		Err:  fmt.Errorf("%s", msg),
	}
}

// KindOf reports the Kind of an AppError, or Internal for anything else.
func KindOf(err error) Kind {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Kind
	}
	return Internal
}

func UserMessage(err error) string {
	appErr, ok := err.(*AppError)
	if !ok {
		return err.Error()
	}
	switch appErr.Kind {
	case InvalidConfig:
		return fmt.Sprintf("Invalid configuration: %v", appErr.Err)
	case DeviceAccess:
		return fmt.Sprintf("Device not accessible: %s", appErr.Path)
	case LedgerCorruption:
		return fmt.Sprintf("Ledger unreadable: %s", appErr.Path)
	case CopyIntegrity:
		return fmt.Sprintf("Copy verification failed: %s", appErr.Path)
	case ToolMissing:
		return fmt.Sprintf("External tool not found: %s", appErr.Path)
	case IOFailure:
		return fmt.Sprintf("I/O error: %s", appErr.Path)
	default:
		return fmt.Sprintf("Unexpected error: %v", appErr.Err)
	}
}
