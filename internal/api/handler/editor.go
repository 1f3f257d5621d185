package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/iconidentify/upclip/internal/domain"
)

// ClipMaker renders a clip from a moment.
type ClipMaker interface {
	Edit(ctx context.Context, req domain.EditRequest) (*domain.EditResult, error)
}

// EditorHandler handles clip edit requests.
type EditorHandler struct {
	maker    ClipMaker
	basePath string
	logger   *slog.Logger
}

// NewEditorHandler creates a new editor handler.
func NewEditorHandler(maker ClipMaker, basePath string, logger *slog.Logger) *EditorHandler {
	return &EditorHandler{
		maker:    maker,
		basePath: basePath,
		logger:   logger,
	}
}

// Edit handles POST /video-editor/edit
func (h *EditorHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var req domain.EditRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !inStorage(h.basePath, req.VideoPath) {
		writeServiceError(w, domain.ErrVideoNotFound, domain.ErrVideoNotFound)
		return
	}

	result, err := h.maker.Edit(r.Context(), req)
	if err != nil {
		writeServiceError(w, err, domain.ErrToolFailed)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
