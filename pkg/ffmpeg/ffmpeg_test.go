package ffmpeg

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iconidentify/upclip/internal/domain"
)

type call struct {
	name string
	args []string
}

// fakeRunner records invocations and delegates to an optional hook.
type fakeRunner struct {
	calls []call
	hook  func(name string, args []string) ([]byte, error)
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, call{name: name, args: args})
	if f.hook != nil {
		return f.hook(name, args)
	}
	return nil, nil
}

func (f *fakeRunner) last() call {
	if len(f.calls) == 0 {
		return call{}
	}
	return f.calls[len(f.calls)-1]
}

func argAfter(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func hasArg(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}

func testProcessor(r Runner) *VideoProcessor {
	return NewVideoProcessorWithRunner("ffmpeg", "ffprobe", r, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

const sampleSceneLog = `frame:0    pts:62062   pts_time:2.06873
lavfi.scene_score=0.412000
frame:1    pts:186186  pts_time:6.2062
lavfi.scene_score=0.815300
frame:2    pts:300300  pts_time:10.01
`

func TestParseSceneLog(t *testing.T) {
	scenes, err := ParseSceneLog(strings.NewReader(sampleSceneLog))
	if err != nil {
		t.Fatalf("ParseSceneLog() error = %v", err)
	}
	want := []domain.Scene{
		{Index: 0, Time: 2.06873, Score: 0.412},
		{Index: 1, Time: 6.2062, Score: 0.8153},
		{Index: 2, Time: 10.01, Score: 0},
	}
	if len(scenes) != len(want) {
		t.Fatalf("got %d scenes, want %d", len(scenes), len(want))
	}
	for i := range want {
		if scenes[i] != want[i] {
			t.Errorf("scene %d = %+v, want %+v", i, scenes[i], want[i])
		}
	}
}

func TestParseSceneLog_Empty(t *testing.T) {
	scenes, err := ParseSceneLog(strings.NewReader(""))
	if err != nil {
		t.Fatalf("ParseSceneLog() error = %v", err)
	}
	if len(scenes) != 0 {
		t.Errorf("got %d scenes, want 0", len(scenes))
	}
}

func TestDetectScenes(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "scenes.log")

	r := &fakeRunner{hook: func(name string, args []string) ([]byte, error) {
		return nil, os.WriteFile(logPath, []byte(sampleSceneLog), 0644)
	}}
	p := testProcessor(r)

	scenes, err := p.DetectScenes(context.Background(), "in.mp4", 0.3, logPath)
	if err != nil {
		t.Fatalf("DetectScenes() error = %v", err)
	}
	if len(scenes) != 3 {
		t.Fatalf("got %d scenes, want 3", len(scenes))
	}

	c := r.last()
	if c.name != "ffmpeg" {
		t.Errorf("tool = %q, want ffmpeg", c.name)
	}
	vf := argAfter(c.args, "-vf")
	if !strings.HasPrefix(vf, "select='gt(scene,0.300)',metadata=print:file=") {
		t.Errorf("filter = %q", vf)
	}
	if argAfter(c.args, "-f") != "null" {
		t.Errorf("expected null muxer, args = %v", c.args)
	}
}

func TestDetectScenes_NoLogMeansNoScenes(t *testing.T) {
	p := testProcessor(&fakeRunner{})
	scenes, err := p.DetectScenes(context.Background(), "in.mp4", 0.3, filepath.Join(t.TempDir(), "missing.log"))
	if err != nil {
		t.Fatalf("DetectScenes() error = %v", err)
	}
	if scenes != nil {
		t.Errorf("scenes = %v, want nil", scenes)
	}
}

func TestDetectScenes_ToolFailure(t *testing.T) {
	boom := errors.New("exit status 1")
	p := testProcessor(&fakeRunner{hook: func(string, []string) ([]byte, error) { return nil, boom }})
	_, err := p.DetectScenes(context.Background(), "in.mp4", 0.3, filepath.Join(t.TempDir(), "x.log"))
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want wrapped %v", err, boom)
	}
}

func TestExtractSceneFrames_SortsNumerically(t *testing.T) {
	dir := t.TempDir()
	r := &fakeRunner{hook: func(name string, args []string) ([]byte, error) {
		for _, n := range []string{"frame_10.jpg", "frame_9.jpg", "frame_1.jpg", "other_2.jpg", "frame_x.jpg", "frame_3.png"} {
			if err := os.WriteFile(filepath.Join(dir, n), []byte("jpg"), 0644); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}}
	p := testProcessor(r)

	frames, err := p.ExtractSceneFrames(context.Background(), "in.mp4", 0.4, FrameOptions{OutputDir: dir, Prefix: "frame", MaxWidth: 640, Quality: 4})
	if err != nil {
		t.Fatalf("ExtractSceneFrames() error = %v", err)
	}

	want := []string{"frame_1.jpg", "frame_9.jpg", "frame_10.jpg"}
	if len(frames) != len(want) {
		t.Fatalf("frames = %v, want %v", frames, want)
	}
	for i, w := range want {
		if filepath.Base(frames[i]) != w {
			t.Errorf("frames[%d] = %s, want %s", i, filepath.Base(frames[i]), w)
		}
	}

	c := r.last()
	if vf := argAfter(c.args, "-vf"); vf != "select='gt(scene,0.400)',scale='min(640,iw)':-2" {
		t.Errorf("filter = %q", vf)
	}
	if argAfter(c.args, "-vsync") != "vfr" {
		t.Error("expected -vsync vfr")
	}
	if argAfter(c.args, "-q:v") != "4" {
		t.Errorf("quality = %q, want 4", argAfter(c.args, "-q:v"))
	}
	if got := c.args[len(c.args)-1]; got != filepath.Join(dir, "frame_%03d.jpg") {
		t.Errorf("pattern = %q", got)
	}
}

func TestExtractIntervalFrames(t *testing.T) {
	dir := t.TempDir()
	r := &fakeRunner{}
	p := testProcessor(r)

	frames, err := p.ExtractIntervalFrames(context.Background(), "in.mp4", 0, FrameOptions{OutputDir: dir})
	if err != nil {
		t.Fatalf("ExtractIntervalFrames() error = %v", err)
	}
	if len(frames) != 0 {
		t.Errorf("frames = %v, want none", frames)
	}
	if vf := argAfter(r.last().args, "-vf"); !strings.HasPrefix(vf, "fps=1/5,") {
		t.Errorf("filter = %q, want fps=1/5 default", vf)
	}
}

func TestExtractFrameAt(t *testing.T) {
	out := filepath.Join(t.TempDir(), "still.jpg")
	r := &fakeRunner{hook: func(name string, args []string) ([]byte, error) {
		return nil, os.WriteFile(args[len(args)-1], []byte("jpg"), 0644)
	}}
	p := testProcessor(r)

	if err := p.ExtractFrameAt(context.Background(), "in.mp4", 65.5, out, FrameOptions{}); err != nil {
		t.Fatalf("ExtractFrameAt() error = %v", err)
	}
	c := r.last()
	if argAfter(c.args, "-ss") != "65.500" {
		t.Errorf("-ss = %q", argAfter(c.args, "-ss"))
	}
	if argAfter(c.args, "-frames:v") != "1" {
		t.Error("expected a single frame")
	}
}

func TestExtractFrameAt_MissingOutput(t *testing.T) {
	p := testProcessor(&fakeRunner{})
	err := p.ExtractFrameAt(context.Background(), "in.mp4", 1, filepath.Join(t.TempDir(), "none.jpg"), FrameOptions{})
	if err == nil {
		t.Error("expected error when ffmpeg writes nothing")
	}
}

func TestProbeDuration(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    float64
		wantErr bool
	}{
		{"plain", "12.345000\n", 12.345, false},
		{"not a number", "N/A\n", 0, true},
		{"zero", "0.000000\n", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRunner{hook: func(string, []string) ([]byte, error) { return []byte(tt.output), nil }}
			got, err := testProcessor(r).ProbeDuration(context.Background(), "in.mp4")
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ProbeDuration() = %v, want %v", got, tt.want)
			}
			if r.last().name != "ffprobe" {
				t.Errorf("tool = %q, want ffprobe", r.last().name)
			}
		})
	}
}

func TestGetVideoInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.mp4")
	if err := os.WriteFile(path, []byte("0123456789"), 0644); err != nil {
		t.Fatal(err)
	}
	probe := `{"format":{"duration":"31.5","bit_rate":"800000"},"streams":[
		{"codec_type":"video","codec_name":"h264","width":1920,"height":1080,"avg_frame_rate":"30000/1001"},
		{"codec_type":"audio","codec_name":"aac"}]}`
	r := &fakeRunner{hook: func(string, []string) ([]byte, error) { return []byte(probe), nil }}

	info, err := testProcessor(r).GetVideoInfo(context.Background(), path)
	if err != nil {
		t.Fatalf("GetVideoInfo() error = %v", err)
	}
	if info.Duration != 31.5 || info.Width != 1920 || info.Height != 1080 {
		t.Errorf("info = %+v", info)
	}
	if !info.HasAudio || info.AudioCodec != "aac" || info.VideoCodec != "h264" {
		t.Errorf("codecs = %+v", info)
	}
	if info.FileSize != 10 {
		t.Errorf("FileSize = %d, want 10", info.FileSize)
	}
	if info.FrameRate < 29.96 || info.FrameRate > 29.98 {
		t.Errorf("FrameRate = %v", info.FrameRate)
	}
}

func TestTrim(t *testing.T) {
	r := &fakeRunner{}
	p := testProcessor(r)

	if err := p.Trim(context.Background(), "in.mp4", "out.mp4", 5, 10, domain.FormatMP4); err != nil {
		t.Fatalf("Trim() error = %v", err)
	}
	c := r.last()
	if argAfter(c.args, "-ss") != "5.000" || argAfter(c.args, "-t") != "10.000" {
		t.Errorf("args = %v", c.args)
	}
	if argAfter(c.args, "-c:v") != "libx264" || argAfter(c.args, "-c:a") != "aac" {
		t.Errorf("expected libx264/aac, args = %v", c.args)
	}
	if c.args[len(c.args)-1] != "out.mp4" {
		t.Errorf("output = %q", c.args[len(c.args)-1])
	}

	if err := p.Trim(context.Background(), "in.mp4", "out.gif", 0, 3, domain.FormatGIF); err != nil {
		t.Fatalf("Trim(gif) error = %v", err)
	}
	if hasArg(r.last().args, "libx264") {
		t.Error("gif output must not use libx264")
	}

	if err := p.Trim(context.Background(), "in.mp4", "out.mp4", 0, 0, domain.FormatMP4); err == nil {
		t.Error("expected error for zero duration")
	}
}

func TestFade(t *testing.T) {
	tests := []struct {
		name      string
		clip      float64
		withAudio bool
		format    domain.OutputFormat
		wantVF    string
		wantAF    string
	}{
		{
			name: "video and audio", clip: 10, withAudio: true, format: domain.FormatMP4,
			wantVF: "fade=t=in:st=0:d=0.500,fade=t=out:st=9.500:d=0.500",
			wantAF: "afade=t=in:st=0:d=0.500,afade=t=out:st=9.500:d=0.500",
		},
		{
			name: "silent source", clip: 10, withAudio: false, format: domain.FormatMP4,
			wantVF: "fade=t=in:st=0:d=0.500,fade=t=out:st=9.500:d=0.500",
		},
		{
			name: "short clip halves fade", clip: 0.6, withAudio: true, format: domain.FormatMOV,
			wantVF: "fade=t=in:st=0:d=0.300,fade=t=out:st=0.300:d=0.300",
			wantAF: "afade=t=in:st=0:d=0.300,afade=t=out:st=0.300:d=0.300",
		},
		{
			name: "gif has no audio", clip: 4, withAudio: true, format: domain.FormatGIF,
			wantVF: "fade=t=in:st=0:d=0.500,fade=t=out:st=3.500:d=0.500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRunner{}
			if err := testProcessor(r).Fade(context.Background(), "in", "out", tt.clip, 0.5, tt.withAudio, tt.format); err != nil {
				t.Fatalf("Fade() error = %v", err)
			}
			c := r.last()
			if got := argAfter(c.args, "-vf"); got != tt.wantVF {
				t.Errorf("-vf = %q, want %q", got, tt.wantVF)
			}
			if got := argAfter(c.args, "-af"); got != tt.wantAF {
				t.Errorf("-af = %q, want %q", got, tt.wantAF)
			}
		})
	}
}

func TestScale(t *testing.T) {
	r := &fakeRunner{}
	if err := testProcessor(r).Scale(context.Background(), "in", "out", domain.Resolution1080p.Scale(), domain.FormatMP4); err != nil {
		t.Fatalf("Scale() error = %v", err)
	}
	if got := argAfter(r.last().args, "-vf"); got != "scale=1920:1080" {
		t.Errorf("-vf = %q", got)
	}
}

func TestDrawText(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "temp_clip.mp4")
	text := "It's 100% real: wow"

	var seen string
	r := &fakeRunner{hook: func(name string, args []string) ([]byte, error) {
		data, err := os.ReadFile(out + ".txt")
		seen = string(data)
		return nil, err
	}}
	p := testProcessor(r)

	err := p.DrawText(context.Background(), "in.mp4", out, TextOverlay{Text: text, FontSize: 20, Position: OverlayTop}, domain.FormatMP4)
	if err != nil {
		t.Fatalf("DrawText() error = %v", err)
	}
	if seen != text {
		t.Errorf("text file held %q, want %q", seen, text)
	}
	if _, err := os.Stat(out + ".txt"); !os.IsNotExist(err) {
		t.Error("text sidecar should be removed")
	}

	vf := argAfter(r.last().args, "-vf")
	for _, want := range []string{"drawtext=textfile=", "expansion=none", "fontsize=20", "box=1", "y=10", "x=(w-text_w)/2"} {
		if !strings.Contains(vf, want) {
			t.Errorf("filter %q missing %q", vf, want)
		}
	}
	if strings.Contains(vf, "wow") {
		t.Error("overlay text must not appear inside the filtergraph")
	}
}

func TestDrawText_BottomAndFont(t *testing.T) {
	got := drawTextFilter("/tmp/a.txt", TextOverlay{Text: "x", FontSize: 24, Position: OverlayBottom, FontFile: "C:/fonts/a.ttf"})
	if !strings.Contains(got, "y=h-th-10") {
		t.Errorf("filter = %q, want bottom anchor", got)
	}
	if !strings.Contains(got, `fontfile=C\:/fonts/a.ttf`) {
		t.Errorf("filter = %q, want escaped font path", got)
	}
}

func TestDrawText_EmptyText(t *testing.T) {
	r := &fakeRunner{}
	err := testProcessor(r).DrawText(context.Background(), "in", filepath.Join(t.TempDir(), "o.mp4"), TextOverlay{Text: "  "}, domain.FormatMP4)
	if err == nil {
		t.Error("expected error for empty text")
	}
	if len(r.calls) != 0 {
		t.Error("ffmpeg should not run for empty text")
	}
}

func TestEscapeFilterPath(t *testing.T) {
	tests := []struct{ in, want string }{
		{"/data/frames/scenes.log", "/data/frames/scenes.log"},
		{`C:\tmp\a.log`, `C\:\\tmp\\a.log`},
	}
	for _, tt := range tests {
		if got := escapeFilterPath(tt.in); got != tt.want {
			t.Errorf("escapeFilterPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCommandError(t *testing.T) {
	inner := errors.New("exit status 1")
	err := &CommandError{Tool: "ffmpeg", Output: "No such file", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("CommandError should unwrap")
	}
	if !strings.Contains(err.Error(), "No such file") {
		t.Errorf("Error() = %q, want tool output", err.Error())
	}
	if got := tail(strings.Repeat("a", 10), 4); got != "...aaaa" {
		t.Errorf("tail = %q", got)
	}
}
