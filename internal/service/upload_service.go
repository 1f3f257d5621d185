package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/iconidentify/upclip/internal/config"
	"github.com/iconidentify/upclip/internal/domain"
)

// UploadService validates and stores uploaded videos.
type UploadService struct {
	cfg    config.StorageConfig
	events domain.EventEmitter
	logger *slog.Logger
}

// NewUploadService creates a new upload service.
func NewUploadService(cfg config.StorageConfig, events domain.EventEmitter, logger *slog.Logger) *UploadService {
	if events == nil {
		events = domain.NopEmitter{}
	}
	return &UploadService{cfg: cfg, events: events, logger: logger}
}

// UploadInput is one file part of a multipart upload.
type UploadInput struct {
	OriginalName string
	MIMEType     string
	Size         int64 // as declared by the client, -1 if unknown
	Body         io.Reader
}

// Save checks the MIME type and size, then writes the body under a fresh
// uuid name that keeps the original extension.
func (s *UploadService) Save(ctx context.Context, in UploadInput) (*domain.Upload, error) {
	if in.Body == nil {
		return nil, domain.ErrNoFile
	}
	if !domain.IsAllowedMIMEType(in.MIMEType) {
		return nil, domain.NewOpError("upload", in.OriginalName,
			fmt.Errorf("%w: %q", domain.ErrInvalidFileType, in.MIMEType))
	}
	if s.cfg.MaxFileSize > 0 && in.Size > s.cfg.MaxFileSize {
		return nil, domain.NewOpError("upload", in.OriginalName, domain.ErrFileTooLarge)
	}

	dir := s.cfg.VideosDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, domain.NewOpError("upload", dir, fmt.Errorf("%w: %w", domain.ErrSaveFailed, err))
	}

	fileName := uuid.NewString() + filepath.Ext(in.OriginalName)
	path := filepath.Join(dir, fileName)

	written, err := s.writeFile(ctx, path, in.Body)
	if err != nil {
		os.Remove(path)
		if errors.Is(err, domain.ErrFileTooLarge) {
			return nil, domain.NewOpError("upload", in.OriginalName, err)
		}
		s.logger.Error("failed to save upload", "path", path, "error", err)
		return nil, domain.NewOpError("upload", path, fmt.Errorf("%w: %w", domain.ErrSaveFailed, err))
	}

	upload := &domain.Upload{
		Success:      true,
		FileName:     fileName,
		OriginalName: in.OriginalName,
		MIMEType:     in.MIMEType,
		Size:         written,
		Path:         path,
		URL:          MediaURL(s.cfg.BasePath, path),
	}

	s.logger.Info("video uploaded",
		"file_name", fileName,
		"original_name", in.OriginalName,
		"mime_type", in.MIMEType,
		"size", written,
	)
	s.events.EmitSuccess(domain.EventCategoryUpload, "upload", "Video uploaded", domain.EventMetadata{
		"file_name":     fileName,
		"original_name": in.OriginalName,
		"size":          written,
	})

	return upload, nil
}

// writeFile copies body to path, enforcing the size limit even when the
// declared size was missing or wrong.
func (s *UploadService) writeFile(ctx context.Context, path string, body io.Reader) (int64, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return 0, err
	}

	src := io.Reader(ctxReader{ctx: ctx, r: body})
	if s.cfg.MaxFileSize > 0 {
		src = io.LimitReader(src, s.cfg.MaxFileSize+1)
	}

	written, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, err
	}
	if s.cfg.MaxFileSize > 0 && written > s.cfg.MaxFileSize {
		return 0, domain.ErrFileTooLarge
	}
	return written, nil
}

// ctxReader stops a copy once the request is cancelled.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
