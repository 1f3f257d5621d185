package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/iconidentify/upclip/internal/domain"
)

// Publisher connects a YouTube account and uploads Shorts.
type Publisher interface {
	AuthURL() (string, error)
	HandleCallback(ctx context.Context, code, state string) (string, error)
	SetRefreshToken(token string) error
	Publish(ctx context.Context, req domain.PublishRequest) (*domain.PublishResult, error)
}

// YouTubeHandler handles the YouTube Shorts endpoints.
type YouTubeHandler struct {
	publisher Publisher
	basePath  string
	logger    *slog.Logger
}

// NewYouTubeHandler creates a new YouTube handler.
func NewYouTubeHandler(publisher Publisher, basePath string, logger *slog.Logger) *YouTubeHandler {
	return &YouTubeHandler{
		publisher: publisher,
		basePath:  basePath,
		logger:    logger,
	}
}

// Auth handles GET /youtube-shorts/auth
// The consent URL is returned as a JSON string.
func (h *YouTubeHandler) Auth(w http.ResponseWriter, r *http.Request) {
	url, err := h.publisher.AuthURL()
	if err != nil {
		writeServiceError(w, err, domain.ErrAuthFailed)
		return
	}
	writeJSON(w, http.StatusOK, url)
}

// Callback handles GET /youtube-shorts/callback?code=...&state=...
// The refresh token is returned as a JSON string so the wizard can keep a copy.
func (h *YouTubeHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		h.logger.Warn("oauth consent denied", "error", e)
		writeServiceError(w, domain.ErrAuthFailed, domain.ErrAuthFailed)
		return
	}

	token, err := h.publisher.HandleCallback(r.Context(), q.Get("code"), q.Get("state"))
	if err != nil {
		writeServiceError(w, err, domain.ErrAuthFailed)
		return
	}
	writeJSON(w, http.StatusOK, token)
}

// SetToken handles POST /youtube-shorts/set-token
func (h *YouTubeHandler) SetToken(w http.ResponseWriter, r *http.Request) {
	var req domain.SetTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.publisher.SetRefreshToken(req.RefreshToken); err != nil {
		writeServiceError(w, err, domain.ErrNoRefreshToken)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Upload handles POST /youtube-shorts/upload
func (h *YouTubeHandler) Upload(w http.ResponseWriter, r *http.Request) {
	var req domain.PublishRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !inStorage(h.basePath, req.VideoPath) {
		writeServiceError(w, domain.ErrVideoNotFound, domain.ErrVideoNotFound)
		return
	}

	result, err := h.publisher.Publish(r.Context(), req)
	if err != nil {
		writeServiceError(w, err, domain.ErrPublishFailed)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
