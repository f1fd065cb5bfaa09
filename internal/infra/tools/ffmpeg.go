package tools

import (
	"context"
	"path/filepath"
	"strings"

	apperrors "camport/internal/errors"
)

// FFmpeg produces compatible renditions: HEIC/HEIF stills to JPEG,
// videos to H.264/AAC MP4. The target format is taken from the output
// path's extension.
type FFmpeg struct {
	Path   string
	Runner Runner
}

func NewFFmpeg(dir string, runner Runner) FFmpeg {
	return FFmpeg{Path: Find(dir, "ffmpeg"), Runner: runner}
}

func (f FFmpeg) Available() bool {
	return f.Path != ""
}

func (f FFmpeg) Transcode(ctx context.Context, src, dst string) error {
	if !f.Available() {
		return apperrors.New(apperrors.ToolMissing, "transcode", "ffmpeg", "ffmpeg not installed")
	}

	var args []string
	switch strings.ToLower(filepath.Ext(dst)) {
	case ".jpg", ".jpeg":
		args = []string{"-y", "-i", src, "-q:v", "2", dst}
	case ".mp4":
		args = []string{
			"-y", "-i", src,
			"-c:v", "libx264", "-preset", "slow", "-crf", "18",
			"-pix_fmt", "yuv420p",
			"-c:a", "aac", "-b:a", "192k",
			"-movflags", "use_metadata_tags",
			dst,
		}
	default:
		return apperrors.New(apperrors.ToolFailure, "transcode", dst, "unsupported target format")
	}
	return f.Runner.Run(ctx, f.Path, args...)
}
