package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/iconidentify/upclip/internal/domain"
)

// encodeArgs returns the output codec arguments for a container.
func encodeArgs(format domain.OutputFormat) []string {
	if format == domain.FormatGIF {
		return []string{"-an", "-loop", "0"}
	}
	return []string{"-c:v", "libx264", "-preset", "veryfast", "-pix_fmt", "yuv420p", "-c:a", "aac"}
}

func (p *VideoProcessor) encode(ctx context.Context, step string, args []string, format domain.OutputFormat, out string) error {
	full := append([]string{"-hide_banner", "-y"}, args...)
	full = append(full, encodeArgs(format)...)
	full = append(full, out)

	p.logger.Debug("edit step", "step", step, "output", out)
	if _, err := p.runner.Run(ctx, p.ffmpegPath, full...); err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}
	return nil
}

// Trim cuts duration seconds starting at start into out.
func (p *VideoProcessor) Trim(ctx context.Context, in, out string, start, duration float64, format domain.OutputFormat) error {
	if duration <= 0 {
		return fmt.Errorf("trim: non-positive duration %s", formatSeconds(duration))
	}
	args := []string{
		"-ss", formatSeconds(start),
		"-i", in,
		"-t", formatSeconds(duration),
	}
	if format == domain.FormatGIF {
		args = append(args, "-vf", "fps=12")
	}
	return p.encode(ctx, "trim", args, format, out)
}

// Fade applies a fade-in at the start and a fade-out at the end of a clip
// of clipDuration seconds. The fade is shortened to half the clip when the
// clip is too short for both. Audio is faded too when withAudio is set.
func (p *VideoProcessor) Fade(ctx context.Context, in, out string, clipDuration, fade float64, withAudio bool, format domain.OutputFormat) error {
	if clipDuration <= 0 {
		return fmt.Errorf("fade: non-positive clip duration %s", formatSeconds(clipDuration))
	}
	if fade <= 0 {
		fade = 0.5
	}
	if fade*2 > clipDuration {
		fade = clipDuration / 2
	}
	d := formatSeconds(fade)
	st := formatSeconds(clipDuration - fade)

	args := []string{
		"-i", in,
		"-vf", fmt.Sprintf("fade=t=in:st=0:d=%s,fade=t=out:st=%s:d=%s", d, st, d),
	}
	if withAudio && format.HasAudio() {
		args = append(args, "-af", fmt.Sprintf("afade=t=in:st=0:d=%s,afade=t=out:st=%s:d=%s", d, st, d))
	}
	return p.encode(ctx, "fade", args, format, out)
}

// Scale resizes the video to a "W:H" scale argument.
func (p *VideoProcessor) Scale(ctx context.Context, in, out, scale string, format domain.OutputFormat) error {
	return p.encode(ctx, "scale", []string{"-i", in, "-vf", "scale=" + scale}, format, out)
}

// OverlayPosition is the vertical anchor of a text overlay.
type OverlayPosition string

const (
	OverlayTop    OverlayPosition = "top"
	OverlayBottom OverlayPosition = "bottom"
)

func (pos OverlayPosition) y() string {
	if pos == OverlayTop {
		return "10"
	}
	return "h-th-10"
}

// TextOverlay describes a boxed, horizontally centred line of text.
type TextOverlay struct {
	Text     string
	FontSize int
	Position OverlayPosition
	FontFile string
}

// DrawText burns overlay.Text into the video. The text is handed to drawtext
// through a sidecar file with expansion disabled, so quotes, colons and
// percent signs are rendered literally.
func (p *VideoProcessor) DrawText(ctx context.Context, in, out string, overlay TextOverlay, format domain.OutputFormat) error {
	if strings.TrimSpace(overlay.Text) == "" {
		return fmt.Errorf("drawtext: empty text")
	}
	if overlay.FontSize <= 0 {
		overlay.FontSize = 24
	}

	textFile := out + ".txt"
	if err := os.WriteFile(textFile, []byte(overlay.Text), 0644); err != nil {
		return fmt.Errorf("write overlay text: %w", err)
	}
	defer os.Remove(textFile)

	return p.encode(ctx, "drawtext", []string{"-i", in, "-vf", drawTextFilter(textFile, overlay)}, format, out)
}

func drawTextFilter(textFile string, overlay TextOverlay) string {
	opts := []string{
		"textfile=" + escapeFilterPath(textFile),
		"expansion=none",
		"fontcolor=white",
		"fontsize=" + strconv.Itoa(overlay.FontSize),
		"box=1",
		"boxcolor=black@0.5",
		"boxborderw=5",
		"x=(w-text_w)/2",
		"y=" + overlay.Position.y(),
	}
	if overlay.FontFile != "" {
		opts = append(opts, "fontfile="+escapeFilterPath(overlay.FontFile))
	}
	return "drawtext=" + strings.Join(opts, ":")
}
