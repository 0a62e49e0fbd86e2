package util

import (
	"log/slog"
	"path/filepath"
	"strings"
)

// MatchPattern wraps filepath.Match with error logging.
// A malformed pattern never matches; the problem is logged so users can fix
// their exclude list.
func MatchPattern(pattern, name string) bool {
	matched, err := filepath.Match(pattern, name)
	if err != nil {
		slog.Warn("invalid pattern, it will not match any files",
			slog.String("pattern", pattern),
			slog.String("error", err.Error()))
		return false
	}
	return matched
}

// ShouldExclude reports whether any pattern matches name or one of the
// components of path.
func ShouldExclude(path string, name string, excludePatterns []string) bool {
	for _, pattern := range excludePatterns {
		if MatchPattern(pattern, name) {
			return true
		}
		for _, part := range strings.Split(filepath.ToSlash(path), "/") {
			if MatchPattern(pattern, part) {
				return true
			}
		}
	}
	return false
}
