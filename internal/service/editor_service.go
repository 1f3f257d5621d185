package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/iconidentify/upclip/internal/config"
	"github.com/iconidentify/upclip/internal/domain"
	"github.com/iconidentify/upclip/pkg/ffmpeg"
)

// EditorService cuts a moment out of a video and dresses it up as a clip.
type EditorService struct {
	editor  ClipEditor
	prober  ClipProber
	storage config.StorageConfig
	cfg     config.EditorConfig
	events  domain.EventEmitter
	logger  *slog.Logger
}

// NewEditorService creates a new editor service.
func NewEditorService(
	editor ClipEditor,
	prober ClipProber,
	storage config.StorageConfig,
	cfg config.EditorConfig,
	events domain.EventEmitter,
	logger *slog.Logger,
) *EditorService {
	if events == nil {
		events = domain.NopEmitter{}
	}
	return &EditorService{
		editor:  editor,
		prober:  prober,
		storage: storage,
		cfg:     cfg,
		events:  events,
		logger:  logger,
	}
}

// clipSpan resolves the start offset and length of the requested clip.
// A positive customDuration overrides the moment's own duration.
func clipSpan(req domain.EditRequest) (start, length float64, err error) {
	start, err = domain.ParseClock(req.Moment.StartTime)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: start time: %w", domain.ErrInvalidMoment, err)
	}

	if req.CustomDuration > 0 {
		return start, float64(req.CustomDuration), nil
	}

	length, err = domain.ParseClock(req.Moment.Duration)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: duration: %w", domain.ErrInvalidMoment, err)
	}
	if length <= 0 {
		return 0, 0, fmt.Errorf("%w: zero duration", domain.ErrInvalidMoment)
	}
	return start, length, nil
}

// Edit runs trim, fade, resize and the optional text overlays. Every step
// after the trim writes temp_<name> and renames it over the output. On
// failure nothing is left behind.
func (s *EditorService) Edit(ctx context.Context, req domain.EditRequest) (*domain.EditResult, error) {
	if !fileExists(req.VideoPath) {
		return nil, domain.NewOpError("edit", req.VideoPath, domain.ErrVideoNotFound)
	}
	format, err := domain.ParseOutputFormat(req.OutputFormat)
	if err != nil {
		return nil, domain.NewOpError("edit", req.VideoPath, err)
	}
	start, length, err := clipSpan(req)
	if err != nil {
		return nil, domain.NewOpError("edit", req.VideoPath, err)
	}

	dir := s.storage.EditedDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, domain.NewOpError("edit", dir, fmt.Errorf("%w: %w", domain.ErrToolFailed, err))
	}

	fileName := uuid.NewString() + "." + string(format)
	outputPath := filepath.Join(dir, fileName)
	tempPath := filepath.Join(dir, "temp_"+fileName)

	result, err := s.run(ctx, req, format, start, length, outputPath, tempPath)
	if err != nil {
		os.Remove(tempPath)
		os.Remove(outputPath)

		s.logger.Error("edit failed", "path", req.VideoPath, "output", outputPath, "error", err)
		s.events.EmitError(domain.EventCategoryEdit, "editor", "Clip edit failed", domain.EventMetadata{
			"video": req.VideoPath,
			"error": err.Error(),
		})
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.NewOpError("edit", req.VideoPath, err)
		}
		return nil, domain.NewOpError("edit", req.VideoPath, fmt.Errorf("%w: %w", domain.ErrToolFailed, err))
	}

	s.logger.Info("clip ready",
		"source", req.VideoPath,
		"output", outputPath,
		"format", format,
		"duration", result.Duration,
		"size", result.FileSize,
	)
	s.events.EmitSuccess(domain.EventCategoryEdit, "editor", "Clip ready", domain.EventMetadata{
		"output":   outputPath,
		"format":   string(format),
		"duration": result.Duration,
	})
	return result, nil
}

func (s *EditorService) run(ctx context.Context, req domain.EditRequest, format domain.OutputFormat, start, length float64, outputPath, tempPath string) (*domain.EditResult, error) {
	if err := s.editor.Trim(ctx, req.VideoPath, outputPath, start, length, format); err != nil {
		return nil, err
	}

	clip, err := s.prober.GetVideoInfo(ctx, outputPath)
	if err != nil {
		return nil, fmt.Errorf("probe trimmed clip: %w", err)
	}
	if clip.Duration <= 0 {
		return nil, fmt.Errorf("probe trimmed clip: no duration")
	}
	// a silent source has no audio stream to fade
	withAudio := format.HasAudio() && clip.HasAudio

	step := func(name string, fn func(in, out string) error) error {
		if err := fn(outputPath, tempPath); err != nil {
			return err
		}
		if err := os.Rename(tempPath, outputPath); err != nil {
			return fmt.Errorf("%s: replace output: %w", name, err)
		}
		return nil
	}

	err = step("fade", func(in, out string) error {
		return s.editor.Fade(ctx, in, out, clip.Duration, s.cfg.FadeDuration, withAudio, format)
	})
	if err != nil {
		return nil, err
	}

	if req.Resolution != "" {
		err = step("scale", func(in, out string) error {
			return s.editor.Scale(ctx, in, out, req.Resolution.Scale(), format)
		})
		if err != nil {
			return nil, err
		}
	}

	if req.IncludeCaption && strings.TrimSpace(req.Moment.SuggestedTitle) != "" {
		err = step("caption", func(in, out string) error {
			return s.editor.DrawText(ctx, in, out, ffmpeg.TextOverlay{
				Text:     req.Moment.SuggestedTitle,
				FontSize: s.cfg.CaptionFontSize,
				Position: ffmpeg.OverlayBottom,
				FontFile: s.cfg.FontFile,
			}, format)
		})
		if err != nil {
			return nil, err
		}
	}

	if hashtags := strings.TrimSpace(strings.Join(req.Moment.SuggestedHashtags, " ")); req.IncludeHashtags && hashtags != "" {
		err = step("hashtags", func(in, out string) error {
			return s.editor.DrawText(ctx, in, out, ffmpeg.TextOverlay{
				Text:     hashtags,
				FontSize: s.cfg.HashtagFontSize,
				Position: ffmpeg.OverlayTop,
				FontFile: s.cfg.FontFile,
			}, format)
		})
		if err != nil {
			return nil, err
		}
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return nil, fmt.Errorf("stat output: %w", err)
	}
	finalDuration, err := s.prober.ProbeDuration(ctx, outputPath)
	if err != nil {
		return nil, fmt.Errorf("probe output: %w", err)
	}

	return &domain.EditResult{
		OutputPath: outputPath,
		Duration:   finalDuration,
		Format:     string(format),
		Resolution: string(req.Resolution),
		FileSize:   info.Size(),
		URL:        MediaURL(s.storage.BasePath, outputPath),
	}, nil
}
