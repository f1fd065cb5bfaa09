package tools

import (
	"context"

	apperrors "camport/internal/errors"
)

// ExifTool carries capture-time metadata from the original file onto a
// converted rendition.
type ExifTool struct {
	Path   string
	Runner Runner
}

func NewExifTool(dir string, runner Runner) ExifTool {
	return ExifTool{Path: Find(dir, "exiftool"), Runner: runner}
}

func (e ExifTool) Available() bool {
	return e.Path != ""
}

func (e ExifTool) CopyMetadata(ctx context.Context, src, dst string) error {
	if !e.Available() {
		return apperrors.New(apperrors.ToolMissing, "copy metadata", "exiftool", "exiftool not installed")
	}
	return e.Runner.Run(ctx, e.Path,
		"-overwrite_original",
		"-TagsFromFile", src,
		"-all:all",
		dst,
	)
}
