package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Kind classifies a file by its extension.
type Kind int

const (
	KindOther Kind = iota
	KindPhoto
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindPhoto:
		return "photo"
	case KindVideo:
		return "video"
	default:
		return "other"
	}
}

// DateSource records where a resolved capture date came from.
type DateSource int

const (
	DateFromMetadata DateSource = iota
	DateFromFilename
	DateFromModTime
	DateFromRunTime
)

func (s DateSource) String() string {
	switch s {
	case DateFromMetadata:
		return "metadata"
	case DateFromFilename:
		return "filename"
	case DateFromModTime:
		return "modtime"
	default:
		return "runtime"
	}
}

// FileDescriptor is what device enumeration yields: attributes only,
// never content. Path is relative to the device root.
type FileDescriptor struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// MediaItem is a candidate file for import. It is assembled during
// enumeration and immutable once the capture date and identity are set.
type MediaItem struct {
	Desc     FileDescriptor
	Kind     Kind
	TakenAt  time.Time
	TakenVia DateSource
	Identity Identity
}

func NewMediaItem(desc FileDescriptor, exts ExtensionSet) MediaItem {
	return MediaItem{
		Desc: desc,
		Kind: exts.Kind(desc.Name),
	}
}

// Identity is the key used to decide "already imported". The prefix
// distinguishes content-hash keys from attribute fingerprints so both
// forms can coexist in one ledger.
type Identity string

func HashIdentity(hexDigest string) Identity {
	return Identity("b3:" + hexDigest)
}

func FingerprintIdentity(desc FileDescriptor) Identity {
	return Identity(fmt.Sprintf("fp:%s|%d|%d",
		filepath.ToSlash(desc.Path), desc.Size, desc.ModTime.Unix()))
}

// ExtensionSet is the configured set of supported media extensions.
type ExtensionSet struct {
	photo map[string]bool
	video map[string]bool
}

func NewExtensionSet(photo, video []string) ExtensionSet {
	s := ExtensionSet{
		photo: make(map[string]bool, len(photo)),
		video: make(map[string]bool, len(video)),
	}
	for _, ext := range photo {
		s.photo[normalizeExt(ext)] = true
	}
	for _, ext := range video {
		s.video[normalizeExt(ext)] = true
	}
	return s
}

func (s ExtensionSet) Kind(name string) Kind {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case s.photo[ext]:
		return KindPhoto
	case s.video[ext]:
		return KindVideo
	default:
		return KindOther
	}
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func DefaultPhotoExtensions() []string {
	return []string{
		".jpg", ".jpeg", ".heic", ".heif", ".png", ".gif", ".bmp",
		".tif", ".tiff", ".webp", ".dng", ".arw", ".cr2", ".nef", ".raw",
	}
}

func DefaultVideoExtensions() []string {
	return []string{".mp4", ".mov", ".m4v", ".avi", ".3gp", ".mkv", ".webm", ".mpg", ".mpeg"}
}
