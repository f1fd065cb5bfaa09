package tools

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "camport/internal/errors"
)

// Runner executes an external tool with a hard timeout. Expected
// failure modes (missing binary, bad input format, timeout) come back
// as error values, never panics.
type Runner struct {
	Timeout time.Duration
	Logger  *zap.Logger
}

func (r Runner) Run(ctx context.Context, bin string, args ...string) error {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	if r.Logger != nil && output.Len() > 0 {
		for _, line := range strings.Split(strings.TrimSpace(output.String()), "\n") {
			r.Logger.Debug("tool output",
				zap.String("tool", filepath.Base(bin)),
				zap.String("line", line))
		}
	}
	if err != nil {
		return apperrors.Wrap(apperrors.ToolFailure, "run", bin, err)
	}
	return nil
}

// Find locates a tool binary: in dir when given, otherwise on PATH.
// An empty result means the tool is absent, which soft-disables the
// feature that needs it.
func Find(dir, name string) string {
	if dir != "" {
		candidate := filepath.Join(dir, name)
		if runtime.GOOS == "windows" {
			candidate += ".exe"
		}
		if _, err := exec.LookPath(candidate); err == nil {
			return candidate
		}
		return ""
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return ""
	}
	return path
}
