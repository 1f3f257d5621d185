package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/iconidentify/upclip/internal/config"
	"github.com/iconidentify/upclip/internal/domain"
	"github.com/iconidentify/upclip/pkg/ffmpeg"
	"github.com/iconidentify/upclip/pkg/llm"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testStorage(t *testing.T) config.StorageConfig {
	t.Helper()
	return config.StorageConfig{BasePath: t.TempDir(), MaxFileSize: 1 << 20}
}

// writeVideo creates a placeholder source video.
func writeVideo(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "source.mp4")
	if err := os.WriteFile(path, []byte("not really a video"), 0644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	return path
}

// ============================================================================
// Fake media tools
// ============================================================================

// fakeMedia stands in for *ffmpeg.VideoProcessor. Frame extraction writes
// real JPEG-named files so encoding and cleanup run for real.
type fakeMedia struct {
	mu sync.Mutex

	duration float64
	probeErr error
	silent   bool // source has no audio stream

	scenes      []domain.Scene
	scenesErr   error
	sceneFrames int
	sceneErr    error

	intervalFrames int
	intervalErr    error
	interval       int

	frameAtErr     error
	frameAtSeconds float64

	failStep string // trim, fade, scale or drawtext

	calls []string
	trim  [2]float64
	fade  struct {
		clip, fade float64
		audio      bool
	}
	scale    string
	overlays []ffmpeg.TextOverlay
}

func (m *fakeMedia) record(call string) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
}

func (m *fakeMedia) ProbeDuration(ctx context.Context, path string) (float64, error) {
	m.record("probe")
	if m.probeErr != nil {
		return 0, m.probeErr
	}
	return m.duration, nil
}

func (m *fakeMedia) GetVideoInfo(ctx context.Context, path string) (*ffmpeg.VideoInfo, error) {
	m.record("info")
	if m.probeErr != nil {
		return nil, m.probeErr
	}
	return &ffmpeg.VideoInfo{Duration: m.duration, HasAudio: !m.silent}, nil
}

func (m *fakeMedia) DetectScenes(ctx context.Context, videoPath string, threshold float64, logPath string) ([]domain.Scene, error) {
	m.record("scenes")
	return m.scenes, m.scenesErr
}

func writeFrames(dir, prefix string, n int) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	paths := make([]string, n)
	for i := range paths {
		paths[i] = filepath.Join(dir, fmt.Sprintf("%s_%03d.jpg", prefix, i+1))
		if err := os.WriteFile(paths[i], []byte(fmt.Sprintf("jpeg %d", i+1)), 0644); err != nil {
			return nil, err
		}
	}
	return paths, nil
}

func (m *fakeMedia) ExtractSceneFrames(ctx context.Context, videoPath string, threshold float64, opts ffmpeg.FrameOptions) ([]string, error) {
	m.record("scene-frames")
	if m.sceneErr != nil {
		return nil, m.sceneErr
	}
	return writeFrames(opts.OutputDir, opts.Prefix, m.sceneFrames)
}

func (m *fakeMedia) ExtractIntervalFrames(ctx context.Context, videoPath string, intervalSec int, opts ffmpeg.FrameOptions) ([]string, error) {
	m.record("interval-frames")
	m.interval = intervalSec
	if m.intervalErr != nil {
		return nil, m.intervalErr
	}
	return writeFrames(opts.OutputDir, opts.Prefix, m.intervalFrames)
}

func (m *fakeMedia) ExtractFrameAt(ctx context.Context, videoPath string, seconds float64, outPath string, opts ffmpeg.FrameOptions) error {
	m.record("frame-at")
	m.frameAtSeconds = seconds
	if m.frameAtErr != nil {
		return m.frameAtErr
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(outPath, []byte("jpeg"), 0644)
}

// transform copies in to out with a marker, or fails on the configured step.
func (m *fakeMedia) transform(step, in, out string) error {
	m.record(step)
	if m.failStep == step {
		// leave a partial file behind like a crashed ffmpeg would
		os.WriteFile(out, []byte("partial"), 0644)
		return &ffmpeg.CommandError{Tool: "ffmpeg " + step, Output: "boom", Err: errors.New("exit status 1")}
	}
	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	return os.WriteFile(out, append(data, []byte("+"+step)...), 0644)
}

func (m *fakeMedia) Trim(ctx context.Context, in, out string, start, duration float64, format domain.OutputFormat) error {
	m.trim = [2]float64{start, duration}
	return m.transform("trim", in, out)
}

func (m *fakeMedia) Fade(ctx context.Context, in, out string, clipDuration, fade float64, withAudio bool, format domain.OutputFormat) error {
	m.fade.clip, m.fade.fade, m.fade.audio = clipDuration, fade, withAudio
	return m.transform("fade", in, out)
}

func (m *fakeMedia) Scale(ctx context.Context, in, out, scale string, format domain.OutputFormat) error {
	m.scale = scale
	return m.transform("scale", in, out)
}

func (m *fakeMedia) DrawText(ctx context.Context, in, out string, overlay ffmpeg.TextOverlay, format domain.OutputFormat) error {
	m.overlays = append(m.overlays, overlay)
	return m.transform("drawtext", in, out)
}

func (m *fakeMedia) callList() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// ============================================================================
// Fake model
// ============================================================================

type fakeReply struct {
	moments []llm.MomentSuggestion
	err     error
}

type fakeModel struct {
	mu       sync.Mutex
	replies  []fakeReply
	requests []llm.FramesRequest

	suggestion     string
	suggestionErr  error
	suggestionReqs []llm.SuggestionRequest
}

func (f *fakeModel) AnalyzeFrames(ctx context.Context, req llm.FramesRequest) ([]llm.MomentSuggestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.requests)
	f.requests = append(f.requests, req)
	if i < len(f.replies) {
		return f.replies[i].moments, f.replies[i].err
	}
	return []llm.MomentSuggestion{}, nil
}

func (f *fakeModel) SuggestEdits(ctx context.Context, req llm.SuggestionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.suggestionReqs = append(f.suggestionReqs, req)
	return f.suggestion, f.suggestionErr
}

// ============================================================================
// Fake events
// ============================================================================

type recordingEmitter struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recordingEmitter) Emit(e domain.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recordingEmitter) add(sev domain.EventSeverity, cat domain.EventCategory, source, msg string, md domain.EventMetadata) {
	r.Emit(domain.Event{Severity: sev, Category: cat, Source: source, Message: msg, Metadata: md.ToJSON(), Timestamp: time.Now()})
}

func (r *recordingEmitter) EmitInfo(c domain.EventCategory, s, m string, md domain.EventMetadata) {
	r.add(domain.EventSeverityInfo, c, s, m, md)
}

func (r *recordingEmitter) EmitWarning(c domain.EventCategory, s, m string, md domain.EventMetadata) {
	r.add(domain.EventSeverityWarning, c, s, m, md)
}

func (r *recordingEmitter) EmitError(c domain.EventCategory, s, m string, md domain.EventMetadata) {
	r.add(domain.EventSeverityError, c, s, m, md)
}

func (r *recordingEmitter) EmitSuccess(c domain.EventCategory, s, m string, md domain.EventMetadata) {
	r.add(domain.EventSeveritySuccess, c, s, m, md)
}

func (r *recordingEmitter) count(sev domain.EventSeverity) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Severity == sev {
			n++
		}
	}
	return n
}

// ============================================================================
// Fake publishing
// ============================================================================

type fakeAuth struct {
	url      string
	token    string
	err      error
	gotCode  string
	gotState string
}

func (f *fakeAuth) AuthURL() string { return f.url }

func (f *fakeAuth) Exchange(ctx context.Context, code, state string) (string, error) {
	f.gotCode, f.gotState = code, state
	return f.token, f.err
}

type fakeUploader struct {
	id       string
	err      error
	gotToken string
	got      domain.PublishRequest
	calls    int
}

func (f *fakeUploader) Upload(ctx context.Context, refreshToken string, req domain.PublishRequest) (string, error) {
	f.calls++
	f.gotToken, f.got = refreshToken, req
	return f.id, f.err
}

type memTokens struct {
	mu      sync.Mutex
	token   string
	saveErr error
}

func (m *memTokens) RefreshToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

func (m *memTokens) SetRefreshToken(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return m.saveErr
}
