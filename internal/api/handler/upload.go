package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/iconidentify/upclip/internal/domain"
	"github.com/iconidentify/upclip/internal/service"
)

// VideoStore saves uploaded videos.
type VideoStore interface {
	Save(ctx context.Context, in service.UploadInput) (*domain.Upload, error)
}

// multipartOverhead allows for boundaries and part headers on top of the
// file itself.
const multipartOverhead = 1 << 20

// UploadHandler handles video uploads.
type UploadHandler struct {
	store   VideoStore
	maxSize int64
	logger  *slog.Logger
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(store VideoStore, maxSize int64, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{
		store:   store,
		maxSize: maxSize,
		logger:  logger,
	}
}

// Upload handles POST /upfile/upload/video
// The multipart body is streamed; only the part named "file" is stored.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.maxSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxSize+multipartOverhead)
	}

	reader, err := r.MultipartReader()
	if err != nil {
		writeServiceError(w, domain.ErrNoFile, domain.ErrNoFile)
		return
	}

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			h.logger.Warn("malformed multipart upload", "error", err)
			writeServiceError(w, err, domain.ErrNoFile)
			return
		}
		if part.FormName() != "file" || part.FileName() == "" {
			part.Close()
			continue
		}

		upload, err := h.store.Save(r.Context(), service.UploadInput{
			OriginalName: part.FileName(),
			MIMEType:     part.Header.Get("Content-Type"),
			Size:         -1,
			Body:         part,
		})
		part.Close()
		if err != nil {
			h.logger.Warn("upload rejected", "file", part.FileName(), "error", err)
			writeServiceError(w, err, domain.ErrSaveFailed)
			return
		}

		writeJSON(w, http.StatusOK, upload)
		return
	}

	writeServiceError(w, domain.ErrNoFile, domain.ErrNoFile)
}
