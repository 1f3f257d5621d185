package ffmpeg

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"

	"github.com/iconidentify/upclip/internal/domain"
)

var (
	ptsTimeRe    = regexp.MustCompile(`pts_time:([0-9.]+)`)
	sceneScoreRe = regexp.MustCompile(`lavfi\.scene_score=([0-9.]+)`)
)

// sceneSelect is the filter that keeps frames whose scene score exceeds threshold.
func sceneSelect(threshold float64) string {
	return fmt.Sprintf("select='gt(scene,%s)'", strconv.FormatFloat(threshold, 'f', 3, 64))
}

// DetectScenes runs the scene filter over the whole video and writes the
// selected frames' metadata to logPath. The log is read back and parsed.
func (p *VideoProcessor) DetectScenes(ctx context.Context, videoPath string, threshold float64, logPath string) ([]domain.Scene, error) {
	filter := sceneSelect(threshold) + ",metadata=print:file=" + escapeFilterPath(logPath)
	_, err := p.runner.Run(ctx, p.ffmpegPath,
		"-hide_banner",
		"-nostats",
		"-y",
		"-i", videoPath,
		"-vf", filter,
		"-an",
		"-f", "null",
		"-",
	)
	if err != nil {
		return nil, fmt.Errorf("scene detection: %w", err)
	}

	f, err := os.Open(logPath)
	if err != nil {
		// No scene above the threshold means ffmpeg may never create the file.
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open scene log: %w", err)
	}
	defer f.Close()

	scenes, err := ParseSceneLog(f)
	if err != nil {
		return nil, fmt.Errorf("parse scene log: %w", err)
	}
	p.logger.Info("scene detection complete", "video", videoPath, "scenes", len(scenes), "threshold", threshold)
	return scenes, nil
}

// ParseSceneLog reads the output of the metadata=print filter. Each selected
// frame contributes a "frame:N pts:N pts_time:T" line followed by its
// lavfi.* tags. A frame without a scene score gets score 0.
func ParseSceneLog(r io.Reader) ([]domain.Scene, error) {
	var (
		scenes  []domain.Scene
		pending *domain.Scene
	)
	flush := func() {
		if pending != nil {
			pending.Index = len(scenes)
			scenes = append(scenes, *pending)
			pending = nil
		}
	}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if m := ptsTimeRe.FindStringSubmatch(line); m != nil {
			flush()
			t, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			pending = &domain.Scene{Time: t}
			continue
		}
		if m := sceneScoreRe.FindStringSubmatch(line); m != nil && pending != nil {
			if score, err := strconv.ParseFloat(m[1], 64); err == nil {
				pending.Score = score
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	flush()
	return scenes, nil
}
