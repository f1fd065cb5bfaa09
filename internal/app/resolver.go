package app

import (
	"context"
	"path"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"camport/internal/domain"
)

var saneEpoch = time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC)

// Resolver assigns every item a capture date. It tries embedded
// metadata first, then filename patterns, then the file's mtime, then
// the run time; it never fails an item outright.
type Resolver struct {
	Device    Device
	Photo     CaptureTimeReader
	Video     CaptureTimeReader
	Workers   int
	ClockSkew time.Duration
	Now       func() time.Time
	Logger    *zap.Logger
}

func (r *Resolver) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func (r *Resolver) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Resolve fills TakenAt and TakenVia on every item, preserving input
// order. Metadata reads fan out over a bounded worker pool; each item's
// own stages stay sequential.
func (r *Resolver) Resolve(ctx context.Context, items []domain.MediaItem) []domain.MediaItem {
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}
	if workers == 0 {
		return items
	}

	out := make([]domain.MediaItem, len(items))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			if ctx.Err() != nil {
				// cancelled items still get a date so the run log can
				// account for them
				out[i] = r.fallback(items[i])
				return
			}
			out[i] = r.resolveOne(ctx, items[i])
		}(i)
	}
	wg.Wait()
	return out
}

func (r *Resolver) resolveOne(ctx context.Context, item domain.MediaItem) domain.MediaItem {
	now := r.now()

	if t, ok := r.fromMetadata(ctx, item); ok && r.plausible(t, now) {
		item.TakenAt = t
		item.TakenVia = domain.DateFromMetadata
		return item
	}
	if t, ok := dateFromPath(item.Desc.Path); ok && r.plausible(t, now) {
		item.TakenAt = t
		item.TakenVia = domain.DateFromFilename
		return item
	}
	return r.fallback(item)
}

func (r *Resolver) fallback(item domain.MediaItem) domain.MediaItem {
	now := r.now()
	if r.plausible(item.Desc.ModTime, now) {
		item.TakenAt = item.Desc.ModTime
		item.TakenVia = domain.DateFromModTime
		return item
	}
	item.TakenAt = now
	item.TakenVia = domain.DateFromRunTime
	return item
}

func (r *Resolver) fromMetadata(ctx context.Context, item domain.MediaItem) (time.Time, bool) {
	var reader CaptureTimeReader
	switch item.Kind {
	case domain.KindPhoto:
		reader = r.Photo
	case domain.KindVideo:
		reader = r.Video
	}
	if reader == nil {
		return time.Time{}, false
	}

	src, err := r.Device.Open(ctx, item.Desc.Path)
	if err != nil {
		r.logger().Debug("cannot open item for metadata",
			zap.String("path", item.Desc.Path), zap.Error(err))
		return time.Time{}, false
	}
	defer src.Close()

	t, err := reader.CaptureTime(ctx, src)
	if err != nil {
		r.logger().Debug("no embedded capture time",
			zap.String("path", item.Desc.Path), zap.Error(err))
		return time.Time{}, false
	}
	return t, true
}

func (r *Resolver) plausible(t, now time.Time) bool {
	if t.IsZero() || t.Before(saneEpoch) {
		return false
	}
	skew := r.ClockSkew
	if skew <= 0 {
		skew = 48 * time.Hour
	}
	return !t.After(now.Add(skew))
}

// pairLiveVideos gives a video the capture date of the photo it was
// shot with. Live photo pairs share a folder and base name on device;
// dating the halves independently would split them across month folders
// whenever the video carries no metadata of its own.
func pairLiveVideos(items []domain.MediaItem) []domain.MediaItem {
	photos := make(map[string]domain.MediaItem)
	for _, item := range items {
		if item.Kind != domain.KindPhoto {
			continue
		}
		key := pairKey(item.Desc.Path)
		if _, ok := photos[key]; !ok {
			photos[key] = item
		}
	}
	for i, item := range items {
		if item.Kind != domain.KindVideo {
			continue
		}
		if photo, ok := photos[pairKey(item.Desc.Path)]; ok {
			items[i].TakenAt = photo.TakenAt
			items[i].TakenVia = photo.TakenVia
		}
	}
	return items
}

func pairKey(relPath string) string {
	return strings.ToLower(strings.TrimSuffix(relPath, path.Ext(relPath)))
}

var (
	// IMG_20250115_143045.jpg and similar
	nameDateTimeRe = regexp.MustCompile(`(\d{4})(\d{2})(\d{2})[_-]?(\d{2})(\d{2})(\d{2})`)
	// bare YYYYMMDD
	nameDateRe = regexp.MustCompile(`(\d{4})(\d{2})(\d{2})`)
	// device folders like 202501_a
	dirYearMonthRe = regexp.MustCompile(`^(\d{4})(\d{2})(?:_[a-z])?$`)
)

// dateFromPath recovers a date from known device naming conventions:
// a datetime or date embedded in the file name, or a YYYYMM folder
// anywhere on the path.
func dateFromPath(relPath string) (time.Time, bool) {
	name := path.Base(relPath)

	if m := nameDateTimeRe.FindStringSubmatch(name); m != nil {
		if t, ok := makeDate(m[1], m[2], m[3], m[4], m[5], m[6]); ok {
			return t, true
		}
	}
	if m := nameDateRe.FindStringSubmatch(name); m != nil {
		if t, ok := makeDate(m[1], m[2], m[3], "0", "0", "0"); ok {
			return t, true
		}
	}

	dir := path.Dir(relPath)
	for _, part := range strings.Split(dir, "/") {
		if m := dirYearMonthRe.FindStringSubmatch(part); m != nil {
			if t, ok := makeDate(m[1], m[2], "1", "0", "0", "0"); ok {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func makeDate(ys, ms, ds, hs, mins, ss string) (time.Time, bool) {
	y, _ := strconv.Atoi(ys)
	m, _ := strconv.Atoi(ms)
	d, _ := strconv.Atoi(ds)
	h, _ := strconv.Atoi(hs)
	min, _ := strconv.Atoi(mins)
	s, _ := strconv.Atoi(ss)

	if m < 1 || m > 12 || d < 1 || d > 31 || h > 23 || min > 59 || s > 59 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, h, min, s, 0, time.Local)
	// reject normalized overflow like February 31st
	if int(t.Month()) != m || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}
