package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/iconidentify/upclip/internal/api/handler"
	mw "github.com/iconidentify/upclip/internal/api/middleware"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Upload   *handler.UploadHandler
	Analyzer *handler.AnalyzerHandler
	Editor   *handler.EditorHandler
	YouTube  *handler.YouTubeHandler
	Media    *handler.MediaHandler
	Events   *handler.EventHandler
	Health   *handler.HealthHandler
	UI       *handler.UIHandler
}

// RouterConfig holds the HTTP settings the router needs.
type RouterConfig struct {
	APIKey         string // empty disables auth
	CORSOrigin     string
	RequestTimeout time.Duration
}

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(h Handlers, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CleanPath) // Normalize paths (e.g., //ready -> /ready)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(mw.CORS(cfg.CORSOrigin))

	// Health endpoints (no auth)
	r.Get("/health", h.Health.Live)
	r.Get("/ready", h.Health.Ready)

	// Wizard pages (no auth - the API key is entered in the UI)
	r.Get("/", h.UI.Index)
	r.Get("/callback", h.UI.Callback)

	auth := func(next http.Handler) http.Handler { return next }
	if cfg.APIKey != "" {
		auth = mw.APIKeyAuth(cfg.APIKey)
	}

	// Pipeline endpoints
	r.Group(func(r chi.Router) {
		r.Use(auth)
		if cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(cfg.RequestTimeout))
		}

		r.Post("/upfile/upload/video", h.Upload.Upload)

		r.Post("/analyzer/analyze", h.Analyzer.Analyze)
		r.Post("/analyzer/generate-short", h.Analyzer.GenerateShort)

		r.Post("/video-editor/edit", h.Editor.Edit)

		r.Get("/youtube-shorts/auth", h.YouTube.Auth)
		r.Get("/youtube-shorts/callback", h.YouTube.Callback)
		r.Post("/youtube-shorts/set-token", h.YouTube.SetToken)
		r.Post("/youtube-shorts/upload", h.YouTube.Upload)

		r.Get("/media/*", h.Media.Serve)
	})

	// API v1 (authenticated, no timeout so event streams stay open)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth)

		r.Get("/stats", h.Health.Stats)

		r.Get("/events", h.Events.List)
		r.Get("/events/recent", h.Events.Recent)
		r.Get("/events/stats", h.Events.Stats)
		r.Get("/events/stream", h.Events.Stream)
		r.Get("/events/categories", h.Events.Categories)
		r.Get("/events/severities", h.Events.Severities)
	})

	return r
}
