package exif

import (
	"context"
	"io"
	"time"

	goexif "github.com/rwcarlsen/goexif/exif"

	apperrors "camport/internal/errors"
)

// Reader extracts the capture time from EXIF metadata. It prefers
// DateTimeOriginal over the plain DateTime tag.
type Reader struct{}

func (Reader) CaptureTime(ctx context.Context, r io.Reader) (time.Time, error) {
	select {
	case <-ctx.Done():
		return time.Time{}, ctx.Err()
	default:
	}

	x, err := goexif.Decode(r)
	if err != nil {
		return time.Time{}, apperrors.Wrap(apperrors.MetadataParse, "decode exif", "", err)
	}

	if tag, err := x.Get(goexif.DateTimeOriginal); err == nil {
		if str, err := tag.StringVal(); err == nil {
			if parsed, err := time.Parse("2006:01:02 15:04:05", str); err == nil {
				return parsed, nil
			}
		}
	}

	if parsed, err := x.DateTime(); err == nil {
		return parsed, nil
	}

	return time.Time{}, apperrors.New(apperrors.MetadataParse, "exif", "", "capture time not present")
}
