package app

import (
	"context"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Transcoder produces a rendition of src at dst; the target format is
// implied by dst's extension.
type Transcoder interface {
	Available() bool
	Transcode(ctx context.Context, src, dst string) error
}

// MetadataCopier carries capture metadata from src onto dst.
type MetadataCopier interface {
	Available() bool
	CopyMetadata(ctx context.Context, src, dst string) error
}

// Converter produces "compatible copies" next to committed imports:
// HEIC/HEIF become JPEG, MOV/M4V become MP4. It runs strictly after the
// primary copy is durable, so nothing here can threaten an import.
type Converter struct {
	Transcoder Transcoder
	Metadata   MetadataCopier
	Logger     *zap.Logger
}

// Enabled reports whether both external tools are present. When either
// is missing conversion is soft-disabled for the whole run.
func (c *Converter) Enabled() bool {
	return c.Transcoder != nil && c.Transcoder.Available() &&
		c.Metadata != nil && c.Metadata.Available()
}

// Convert produces a compatible rendition for destPath if its format
// needs one. An empty output path with nil error means no conversion
// applies to this format.
func (c *Converter) Convert(ctx context.Context, destPath string) (string, error) {
	target := compatTarget(destPath)
	if target == "" {
		return "", nil
	}

	if err := c.Transcoder.Transcode(ctx, destPath, target); err != nil {
		return "", err
	}
	if err := c.Metadata.CopyMetadata(ctx, destPath, target); err != nil {
		if c.Logger != nil {
			c.Logger.Warn("metadata carry-over failed",
				zap.String("rendition", target), zap.Error(err))
		}
		return "", err
	}
	return target, nil
}

// compatTarget maps a committed file to its compatible-rendition path,
// or "" when the format already plays everywhere.
func compatTarget(destPath string) string {
	ext := strings.ToLower(filepath.Ext(destPath))
	base := strings.TrimSuffix(destPath, filepath.Ext(destPath))
	switch ext {
	case ".heic", ".heif":
		return base + "_compat.jpg"
	case ".mov", ".m4v":
		return base + "_compat.mp4"
	default:
		return ""
	}
}
