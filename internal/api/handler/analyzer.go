package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/iconidentify/upclip/internal/domain"
)

// MomentFinder finds and explains clip-worthy moments.
type MomentFinder interface {
	Analyze(ctx context.Context, videoPath string) ([]domain.Moment, error)
	GenerateShortContent(ctx context.Context, videoPath, timestamp string) (string, error)
}

// AnalyzerHandler handles moment analysis requests.
type AnalyzerHandler struct {
	finder   MomentFinder
	basePath string
	logger   *slog.Logger
}

// NewAnalyzerHandler creates a new analyzer handler.
func NewAnalyzerHandler(finder MomentFinder, basePath string, logger *slog.Logger) *AnalyzerHandler {
	return &AnalyzerHandler{
		finder:   finder,
		basePath: basePath,
		logger:   logger,
	}
}

// Analyze handles POST /analyzer/analyze
func (h *AnalyzerHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req domain.AnalyzeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !inStorage(h.basePath, req.VideoPath) {
		writeServiceError(w, domain.ErrVideoNotFound, domain.ErrVideoNotFound)
		return
	}

	moments, err := h.finder.Analyze(r.Context(), req.VideoPath)
	if err != nil {
		h.logger.Error("analysis failed", "path", req.VideoPath, "error", err)
		writeServiceError(w, err, domain.ErrModelFailed)
		return
	}

	writeJSON(w, http.StatusOK, moments)
}

// GenerateShort handles POST /analyzer/generate-short
// The response body is a JSON string.
func (h *AnalyzerHandler) GenerateShort(w http.ResponseWriter, r *http.Request) {
	var req domain.ShortContentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !inStorage(h.basePath, req.VideoPath) {
		writeServiceError(w, domain.ErrVideoNotFound, domain.ErrVideoNotFound)
		return
	}

	suggestions, err := h.finder.GenerateShortContent(r.Context(), req.VideoPath, req.Timestamp)
	if err != nil {
		h.logger.Error("edit suggestions failed", "path", req.VideoPath, "timestamp", req.Timestamp, "error", err)
		writeServiceError(w, err, domain.ErrSuggestionFailed)
		return
	}

	writeJSON(w, http.StatusOK, suggestions)
}
