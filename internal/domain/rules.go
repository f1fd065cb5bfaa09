package domain

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var (
	invalidNameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

	reservedNames = map[string]bool{
		"CON": true, "PRN": true, "AUX": true, "NUL": true,
		"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
		"COM6": true, "COM7": true, "COM8": true, "COM9": true,
		"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
		"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
	}
)

// SanitizeFilename makes a single path component safe on common
// filesystems, including Windows reserved device names.
func SanitizeFilename(name, fallback string) string {
	if name == "" {
		return fallback
	}
	name = invalidNameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, " .")
	if name == "" {
		return fallback
	}
	base := name
	if i := strings.IndexByte(name, '.'); i >= 0 {
		base = name[:i]
	}
	if reservedNames[strings.ToUpper(base)] {
		name = "_" + name
	}
	return name
}

// SanitizeRelPath sanitizes every component of a relative path,
// accepting either separator.
func SanitizeRelPath(rel string) string {
	rel = strings.ReplaceAll(rel, `\`, "/")
	parts := strings.Split(rel, "/")
	out := parts[:0]
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, SanitizeFilename(p, "folder"))
	}
	return strings.Join(out, "/")
}

// DefaultMonthNames is the fallback month-name table used for the
// <year>/<MM-Name> destination folders when none is configured.
func DefaultMonthNames() []string {
	return []string{
		"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December",
	}
}

// MonthFolder returns the "<year>/<2-digit month>-<name>" folder for a
// capture date. names must hold exactly twelve entries.
func MonthFolder(t time.Time, names []string) string {
	m := int(t.Month())
	return fmt.Sprintf("%04d/%02d-%s", t.Year(), m, SanitizeFilename(names[m-1], "Month"))
}

// SuffixedName inserts "_<n>" before the extension: IMG_0001.jpg with
// n=1 becomes IMG_0001_1.jpg.
func SuffixedName(name string, n int) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return fmt.Sprintf("%s_%d%s", base, n, ext)
}
