package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// VideoProcessor wraps the ffmpeg and ffprobe binaries.
type VideoProcessor struct {
	ffmpegPath  string
	ffprobePath string
	runner      Runner
	logger      *slog.Logger
}

// NewVideoProcessor creates a processor that shells out through ExecRunner.
// Empty paths default to the binaries on PATH.
func NewVideoProcessor(ffmpegPath, ffprobePath string, logger *slog.Logger) *VideoProcessor {
	return NewVideoProcessorWithRunner(ffmpegPath, ffprobePath, ExecRunner{Logger: logger}, logger)
}

// NewVideoProcessorWithRunner creates a processor that uses the given Runner.
func NewVideoProcessorWithRunner(ffmpegPath, ffprobePath string, runner Runner, logger *slog.Logger) *VideoProcessor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &VideoProcessor{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		runner:      runner,
		logger:      logger,
	}
}

// IsAvailable reports whether both binaries can be resolved.
func (p *VideoProcessor) IsAvailable() error {
	if _, err := exec.LookPath(p.ffmpegPath); err != nil {
		return fmt.Errorf("ffmpeg not found: %w", err)
	}
	if _, err := exec.LookPath(p.ffprobePath); err != nil {
		return fmt.Errorf("ffprobe not found: %w", err)
	}
	return nil
}

// GetVersion returns the first line of `ffmpeg -version`.
func (p *VideoProcessor) GetVersion(ctx context.Context) (string, error) {
	out, err := p.runner.Run(ctx, p.ffmpegPath, "-version")
	if err != nil {
		return "", fmt.Errorf("ffmpeg version: %w", err)
	}
	line, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(line), nil
}

// ProbeDuration returns the container duration in seconds.
func (p *VideoProcessor) ProbeDuration(ctx context.Context, path string) (float64, error) {
	out, err := p.runner.Run(ctx, p.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w", err)
	}
	s := strings.TrimSpace(string(out))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	if sec <= 0 {
		return 0, fmt.Errorf("non-positive duration %q", s)
	}
	return sec, nil
}

// VideoInfo contains metadata about a video file.
type VideoInfo struct {
	Duration   float64
	Width      int
	Height     int
	HasAudio   bool
	AudioCodec string
	VideoCodec string
	Bitrate    int64
	FrameRate  float64
	FileSize   int64
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
	Streams []struct {
		CodecType    string `json:"codec_type"`
		CodecName    string `json:"codec_name"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
	} `json:"streams"`
}

// GetVideoInfo reads stream and container metadata with ffprobe.
func (p *VideoProcessor) GetVideoInfo(ctx context.Context, path string) (*VideoInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat video: %w", err)
	}

	out, err := p.runner.Run(ctx, p.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	if err != nil {
		return nil, fmt.Errorf("ffprobe: %w", err)
	}

	var parsed probeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	info := &VideoInfo{FileSize: stat.Size()}
	if dur, err := strconv.ParseFloat(parsed.Format.Duration, 64); err == nil {
		info.Duration = dur
	}
	if br, err := strconv.ParseInt(parsed.Format.BitRate, 10, 64); err == nil {
		info.Bitrate = br
	}

	for _, s := range parsed.Streams {
		switch s.CodecType {
		case "audio":
			info.HasAudio = true
			if info.AudioCodec == "" {
				info.AudioCodec = s.CodecName
			}
		case "video":
			if info.VideoCodec == "" {
				info.VideoCodec = s.CodecName
			}
			if info.Width == 0 {
				info.Width = s.Width
			}
			if info.Height == 0 {
				info.Height = s.Height
			}
			if info.FrameRate == 0 {
				info.FrameRate = parseRate(s.AvgFrameRate)
			}
		}
	}
	return info, nil
}

// parseRate turns "30000/1001" into a float. Unknown rates return 0.
func parseRate(r string) float64 {
	num, den, ok := strings.Cut(r, "/")
	if !ok {
		return 0
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}

// escapeFilterPath escapes a path for use as a filter option value.
func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, `\`, `\\`)
	p = strings.ReplaceAll(p, ":", `\:`)
	return p
}

func formatSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}
