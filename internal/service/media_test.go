package service

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMediaURL(t *testing.T) {
	base := t.TempDir()

	tests := []struct {
		name string
		path string
		want string
	}{
		{"upload", filepath.Join(base, "videos", "a.mp4"), "/media/videos/a.mp4"},
		{"edited", filepath.Join(base, "edited", "b.gif"), "/media/edited/b.gif"},
		{"unclean path", filepath.Join(base, "videos", "..", "edited", "c.mov"), "/media/edited/c.mov"},
		{"root itself", base, ""},
		{"outside", filepath.Join(filepath.Dir(base), "elsewhere.mp4"), ""},
		{"sibling prefix", base + "-other/x.mp4", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MediaURL(base, tt.path); got != tt.want {
				t.Errorf("MediaURL(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if !fileExists(file) {
		t.Error("regular file should exist")
	}
	if fileExists(dir) {
		t.Error("a directory is not a video file")
	}
	if fileExists(filepath.Join(dir, "missing.mp4")) {
		t.Error("missing file reported as existing")
	}
	if fileExists("  ") {
		t.Error("blank path reported as existing")
	}
}
