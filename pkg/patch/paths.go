package patch

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
)

// ErrStripLevel is returned when a strip level exceeds the path depth.
var ErrStripLevel = errors.New("strip level exceeds path components")

var (
	reDriveAbs    = regexp.MustCompile(`^[A-Za-z0-9_]:[\\/]`)
	reDriveMarker = regexp.MustCompile(`^[A-Za-z0-9_]+:`)
)

// IsAbs reports whether p is absolute on any platform: it starts with a
// slash or backslash, or with a drive letter followed by a separator.
func IsAbs(p string) bool {
	if p == "" {
		return false
	}
	if p[0] == '/' || p[0] == '\\' {
		return true
	}
	return reDriveAbs.MatchString(p)
}

// NormPath converts backslashes to slashes and cleans the result. Interior
// "a/../b" collapses, a leading ".." is kept.
func NormPath(p string) string {
	if p == "" {
		return ""
	}
	return path.Clean(strings.ReplaceAll(p, `\`, "/"))
}

// StripAbs removes every leading drive marker and separator from p.
// Relative paths are returned unchanged.
func StripAbs(p string) string {
	for IsAbs(p) {
		p = reDriveMarker.ReplaceAllString(p, "")
		p = strings.TrimLeft(p, `\/`)
	}
	return p
}

// StripComponents drops the first n components of p, the -pN convention.
func StripComponents(p string, n int) (string, error) {
	if n <= 0 {
		return p, nil
	}
	parts := strings.Split(strings.Trim(NormPath(p), "/"), "/")
	if n > len(parts) {
		return "", fmt.Errorf("%w: -p%d on %q", ErrStripLevel, n, p)
	}
	return strings.Join(parts[n:], "/"), nil
}

// stripParents removes leading "../" segments and reports whether any were
// removed.
func stripParents(p string) (string, bool) {
	stripped := false
	for strings.HasPrefix(p, "../") {
		p = p[len("../"):]
		stripped = true
	}
	if p == ".." {
		p = ""
		stripped = true
	}
	return p, stripped
}
