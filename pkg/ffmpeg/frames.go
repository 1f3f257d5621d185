package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// FrameOptions controls where and how stills are written.
type FrameOptions struct {
	OutputDir string
	Prefix    string // file names are <Prefix>_%03d.jpg
	MaxWidth  int    // frames wider than this are downscaled
	Quality   int    // JPEG qscale, 2 (best) to 31
}

func (o FrameOptions) withDefaults() FrameOptions {
	if o.Prefix == "" {
		o.Prefix = "frame"
	}
	if o.MaxWidth <= 0 {
		o.MaxWidth = 768
	}
	if o.Quality <= 0 {
		o.Quality = 5
	}
	return o
}

func (o FrameOptions) scaleFilter() string {
	return fmt.Sprintf("scale='min(%d,iw)':-2", o.MaxWidth)
}

func (o FrameOptions) pattern() string {
	return filepath.Join(o.OutputDir, o.Prefix+"_%03d.jpg")
}

// ExtractSceneFrames writes one still per frame selected by the scene
// filter and returns their paths in presentation order.
func (p *VideoProcessor) ExtractSceneFrames(ctx context.Context, videoPath string, threshold float64, opts FrameOptions) ([]string, error) {
	opts = opts.withDefaults()
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("create frames dir: %w", err)
	}

	_, err := p.runner.Run(ctx, p.ffmpegPath,
		"-hide_banner",
		"-y",
		"-i", videoPath,
		"-vf", sceneSelect(threshold)+","+opts.scaleFilter(),
		"-vsync", "vfr",
		"-q:v", strconv.Itoa(opts.Quality),
		opts.pattern(),
	)
	if err != nil {
		return nil, fmt.Errorf("extract scene frames: %w", err)
	}
	return CollectFrames(opts.OutputDir, opts.Prefix)
}

// ExtractIntervalFrames writes one still every intervalSec seconds.
func (p *VideoProcessor) ExtractIntervalFrames(ctx context.Context, videoPath string, intervalSec int, opts FrameOptions) ([]string, error) {
	opts = opts.withDefaults()
	if intervalSec <= 0 {
		intervalSec = 5
	}
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("create frames dir: %w", err)
	}

	_, err := p.runner.Run(ctx, p.ffmpegPath,
		"-hide_banner",
		"-y",
		"-i", videoPath,
		"-vf", fmt.Sprintf("fps=1/%d,%s", intervalSec, opts.scaleFilter()),
		"-q:v", strconv.Itoa(opts.Quality),
		opts.pattern(),
	)
	if err != nil {
		return nil, fmt.Errorf("extract interval frames: %w", err)
	}
	return CollectFrames(opts.OutputDir, opts.Prefix)
}

// ExtractFrameAt writes the single frame at the given offset to outPath.
func (p *VideoProcessor) ExtractFrameAt(ctx context.Context, videoPath string, seconds float64, outPath string, opts FrameOptions) error {
	opts = opts.withDefaults()
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("create frames dir: %w", err)
	}

	_, err := p.runner.Run(ctx, p.ffmpegPath,
		"-hide_banner",
		"-y",
		"-ss", formatSeconds(seconds),
		"-i", videoPath,
		"-frames:v", "1",
		"-vf", opts.scaleFilter(),
		"-q:v", strconv.Itoa(opts.Quality),
		outPath,
	)
	if err != nil {
		return fmt.Errorf("extract frame at %s: %w", formatSeconds(seconds), err)
	}
	if _, err := os.Stat(outPath); err != nil {
		return fmt.Errorf("frame not written: %w", err)
	}
	return nil
}

// CollectFrames lists <prefix>_N.jpg files in dir ordered by N.
func CollectFrames(dir, prefix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frames dir: %w", err)
	}

	type numbered struct {
		n    int
		path string
	}
	var frames []numbered
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, prefix+"_") || !strings.EqualFold(filepath.Ext(name), ".jpg") {
			continue
		}
		digits := strings.TrimSuffix(strings.TrimPrefix(name, prefix+"_"), filepath.Ext(name))
		n, err := strconv.Atoi(digits)
		if err != nil {
			continue
		}
		frames = append(frames, numbered{n: n, path: filepath.Join(dir, name)})
	}
	sort.Slice(frames, func(i, j int) bool { return frames[i].n < frames[j].n })

	paths := make([]string, len(frames))
	for i, f := range frames {
		paths[i] = f.path
	}
	return paths, nil
}
