package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/iconidentify/upclip/internal/domain"
)

func TestYouTubeHandler_Auth(t *testing.T) {
	pub := &fakePublisher{url: "https://accounts.google.com/o/oauth2/auth?access_type=offline"}
	h := NewYouTubeHandler(pub, t.TempDir(), testLogger())

	w := httptest.NewRecorder()
	h.Auth(w, httptest.NewRequest(http.MethodGet, "/youtube-shorts/auth", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var url string
	if err := json.Unmarshal(w.Body.Bytes(), &url); err != nil {
		t.Fatalf("response should be a JSON string: %v", err)
	}
	if url != pub.url {
		t.Errorf("url = %q", url)
	}
}

func TestYouTubeHandler_AuthDisabled(t *testing.T) {
	h := NewYouTubeHandler(&fakePublisher{urlErr: domain.ErrPublishingDisabled}, t.TempDir(), testLogger())

	w := httptest.NewRecorder()
	h.Auth(w, httptest.NewRequest(http.MethodGet, "/youtube-shorts/auth", nil))

	if w.Code != http.StatusBadRequest || errorBody(t, w) != "YouTube publishing is not configured" {
		t.Errorf("got %d %s", w.Code, w.Body.String())
	}
}

func TestYouTubeHandler_Callback(t *testing.T) {
	pub := &fakePublisher{token: "1//refresh"}
	h := NewYouTubeHandler(pub, t.TempDir(), testLogger())

	w := httptest.NewRecorder()
	h.Callback(w, httptest.NewRequest(http.MethodGet, "/youtube-shorts/callback?code=4%2Fabc&state=s1", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var token string
	json.Unmarshal(w.Body.Bytes(), &token)
	if token != "1//refresh" {
		t.Errorf("token = %q", token)
	}
	if pub.gotCode != "4/abc" || pub.gotState != "s1" {
		t.Errorf("code %q state %q", pub.gotCode, pub.gotState)
	}
}

func TestYouTubeHandler_CallbackErrors(t *testing.T) {
	tests := []struct {
		name  string
		query string
		err   error
		want  string
	}{
		{"consent denied", "?error=access_denied", nil, "Failed to authenticate with YouTube"},
		{"no refresh token", "?code=c", domain.NewOpError("oauth-callback", "", domain.ErrNoRefreshToken), "No refresh token received"},
		{"exchange failed", "?code=c", domain.NewOpError("oauth-callback", "", fmt.Errorf("%w: invalid_grant", domain.ErrAuthFailed)), "Failed to authenticate with YouTube"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &fakePublisher{tokenErr: tt.err}
			h := NewYouTubeHandler(pub, t.TempDir(), testLogger())

			w := httptest.NewRecorder()
			h.Callback(w, httptest.NewRequest(http.MethodGet, "/youtube-shorts/callback"+tt.query, nil))

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d", w.Code)
			}
			if got := errorBody(t, w); got != tt.want {
				t.Errorf("error = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestYouTubeHandler_SetToken(t *testing.T) {
	pub := &fakePublisher{}
	h := NewYouTubeHandler(pub, t.TempDir(), testLogger())

	w := postJSON(t, h.SetToken, "/youtube-shorts/set-token", domain.SetTokenRequest{RefreshToken: "1//stored"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if pub.gotToken != "1//stored" {
		t.Errorf("token = %q", pub.gotToken)
	}

	pub.setErr = domain.NewOpError("set-token", "", domain.ErrNoRefreshToken)
	w = postJSON(t, h.SetToken, "/youtube-shorts/set-token", domain.SetTokenRequest{})
	if w.Code != http.StatusBadRequest || errorBody(t, w) != "No refresh token received" {
		t.Errorf("got %d %s", w.Code, w.Body.String())
	}
}

func TestYouTubeHandler_Upload(t *testing.T) {
	base, video := storageWithVideo(t)
	pub := &fakePublisher{result: &domain.PublishResult{
		VideoID:       "abc123",
		VideoURL:      "https://youtube.com/shorts/abc123",
		Title:         "t",
		Description:   "d",
		Tags:          []string{"x"},
		PrivacyStatus: "public",
	}}
	h := NewYouTubeHandler(pub, base, testLogger())

	w := postJSON(t, h.Upload, "/youtube-shorts/upload", map[string]interface{}{
		"videoPath":   video,
		"title":       "t",
		"description": "d",
		"tags":        []string{"x"},
		"isPrivate":   false,
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var got domain.PublishResult
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(&got, pub.result) {
		t.Errorf("result = %+v", got)
	}
	if pub.gotReq.VideoPath != video || pub.gotReq.IsPrivate {
		t.Errorf("request = %+v", pub.gotReq)
	}
}

func TestYouTubeHandler_UploadErrors(t *testing.T) {
	base, video := storageWithVideo(t)

	tests := []struct {
		name string
		path string
		err  error
		want string
	}{
		{"outside storage", "/tmp/../etc/hosts", nil, "Video file not found"},
		{"not connected", video, domain.NewOpError("publish", video, domain.ErrNotAuthenticated), "YouTube account not connected"},
		{"api failure", video, domain.NewOpError("publish", video, fmt.Errorf("%w: quotaExceeded", domain.ErrPublishFailed)), "Failed to upload video to YouTube"},
		{"disabled", video, domain.ErrPublishingDisabled, "YouTube publishing is not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &fakePublisher{publishErr: tt.err}
			h := NewYouTubeHandler(pub, base, testLogger())

			w := postJSON(t, h.Upload, "/youtube-shorts/upload", domain.PublishRequest{VideoPath: tt.path, Title: "t"})

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d", w.Code)
			}
			if got := errorBody(t, w); got != tt.want {
				t.Errorf("error = %q, want %q", got, tt.want)
			}
		})
	}
}
