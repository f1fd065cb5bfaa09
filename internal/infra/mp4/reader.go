package mp4

import (
	"bytes"
	"context"
	"io"
	"time"

	gomp4 "github.com/abema/go-mp4"

	apperrors "camport/internal/errors"
)

// DefaultMaxBytes bounds how much of a non-seekable stream is buffered
// in memory while looking for the movie header.
const DefaultMaxBytes = 64 << 20

var isoEpoch = time.Date(1904, time.January, 1, 0, 0, 0, 0, time.UTC)

// Reader extracts the creation time from MP4/MOV containers (mvhd box,
// with tkhd as a fallback).
type Reader struct {
	MaxBytes int64
}

func (m Reader) CaptureTime(ctx context.Context, r io.Reader) (time.Time, error) {
	select {
	case <-ctx.Done():
		return time.Time{}, ctx.Err()
	default:
	}

	rs, err := m.seekable(r)
	if err != nil {
		return time.Time{}, apperrors.Wrap(apperrors.MetadataParse, "buffer mp4", "", err)
	}

	var created time.Time
	_, err = gomp4.ReadBoxStructure(rs, func(h *gomp4.ReadHandle) (any, error) {
		if !h.BoxInfo.IsSupportedType() || h.BoxInfo.Type.String() == "mdat" {
			return nil, nil
		}
		box, _, err := h.ReadPayload()
		if err != nil {
			return nil, err
		}
		switch b := box.(type) {
		case *gomp4.Mvhd:
			if created.IsZero() {
				if t := b.GetCreationTime(); t != 0 {
					created = isoEpoch.Add(time.Duration(t) * time.Second)
				}
			}
		case *gomp4.Tkhd:
			// in case the movie header lacked it
			if created.IsZero() {
				if t := b.GetCreationTime(); t != 0 {
					created = isoEpoch.Add(time.Duration(t) * time.Second)
				}
			}
		}
		return h.Expand()
	})
	if err != nil {
		return time.Time{}, apperrors.Wrap(apperrors.MetadataParse, "parse mp4", "", err)
	}
	if created.IsZero() {
		return time.Time{}, apperrors.New(apperrors.MetadataParse, "mp4", "", "creation time not present")
	}
	return created, nil
}

// seekable adapts the stream for the box parser, which needs to seek.
// Device streams make no seek guarantee, so anything else is read into
// memory up to MaxBytes.
func (m Reader) seekable(r io.Reader) (io.ReadSeeker, error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		return rs, nil
	}
	limit := m.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(r, limit)); err != nil {
		return nil, err
	}
	return bytes.NewReader(buf.Bytes()), nil
}
