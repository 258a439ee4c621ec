package patch

import "strings"

// detectDialect scans header lines in order and returns the dialect of the
// first tool marker found.
func detectDialect(header []string) Dialect {
	for _, raw := range header {
		line := strings.TrimRight(raw, "\r\n")
		switch {
		case strings.HasPrefix(line, "Index: "):
			return DialectSVN
		case strings.HasPrefix(line, "# HG changeset patch"), strings.HasPrefix(line, "diff -r "):
			return DialectHg
		case strings.HasPrefix(line, "diff --git "):
			return DialectGit
		}
	}
	return DialectPlain
}
