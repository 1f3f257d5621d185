package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/iconidentify/upclip/internal/domain"
	"github.com/iconidentify/upclip/internal/service"
)

// testLogger returns a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// storageWithVideo creates a storage root holding videos/source.mp4.
func storageWithVideo(t *testing.T) (base, video string) {
	t.Helper()
	base = t.TempDir()
	video = filepath.Join(base, "videos", "source.mp4")
	if err := os.MkdirAll(filepath.Dir(video), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(video, []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}
	return base, video
}

func postJSON(t *testing.T, h http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

// errorBody decodes a {"error": ...} response.
func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return body["error"]
}

// ============================================================================
// Fake services
// ============================================================================

type fakeStore struct {
	got     service.UploadInput
	content []byte
	err     error
	calls   int
}

func (f *fakeStore) Save(ctx context.Context, in service.UploadInput) (*domain.Upload, error) {
	f.calls++
	f.got = in
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.content = data
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Upload{
		Success:      true,
		FileName:     "abc.mp4",
		OriginalName: in.OriginalName,
		MIMEType:     in.MIMEType,
		Size:         int64(len(data)),
		Path:         "uploads/videos/abc.mp4",
		URL:          "/media/videos/abc.mp4",
	}, nil
}

type fakeFinder struct {
	moments     []domain.Moment
	suggestions string
	err         error
	gotPath     string
	gotStamp    string
}

func (f *fakeFinder) Analyze(ctx context.Context, videoPath string) ([]domain.Moment, error) {
	f.gotPath = videoPath
	return f.moments, f.err
}

func (f *fakeFinder) GenerateShortContent(ctx context.Context, videoPath, timestamp string) (string, error) {
	f.gotPath, f.gotStamp = videoPath, timestamp
	return f.suggestions, f.err
}

type fakeMaker struct {
	result *domain.EditResult
	err    error
	got    domain.EditRequest
	calls  int
}

func (f *fakeMaker) Edit(ctx context.Context, req domain.EditRequest) (*domain.EditResult, error) {
	f.calls++
	f.got = req
	return f.result, f.err
}

type fakePublisher struct {
	url        string
	urlErr     error
	token      string
	tokenErr   error
	setErr     error
	result     *domain.PublishResult
	publishErr error

	gotCode, gotState string
	gotToken          string
	gotReq            domain.PublishRequest
	publishCalls      int
}

func (f *fakePublisher) AuthURL() (string, error) { return f.url, f.urlErr }

func (f *fakePublisher) HandleCallback(ctx context.Context, code, state string) (string, error) {
	f.gotCode, f.gotState = code, state
	return f.token, f.tokenErr
}

func (f *fakePublisher) SetRefreshToken(token string) error {
	f.gotToken = token
	return f.setErr
}

func (f *fakePublisher) Publish(ctx context.Context, req domain.PublishRequest) (*domain.PublishResult, error) {
	f.publishCalls++
	f.gotReq = req
	return f.result, f.publishErr
}

func (f *fakePublisher) Enabled() bool   { return f.url != "" }
func (f *fakePublisher) Connected() bool { return f.gotToken != "" }
