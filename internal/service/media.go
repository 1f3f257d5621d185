package service

import (
	"os"
	"path/filepath"
	"strings"
)

// MediaURL maps a file under the storage root to the URL it is served at,
// or "" when the file lies outside the root.
func MediaURL(basePath, path string) string {
	base, err := filepath.Abs(basePath)
	if err != nil {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return ""
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return ""
	}
	return "/media/" + filepath.ToSlash(rel)
}

// fileExists reports whether path names a regular file.
func fileExists(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
