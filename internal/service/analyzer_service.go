package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/iconidentify/upclip/internal/config"
	"github.com/iconidentify/upclip/internal/domain"
	"github.com/iconidentify/upclip/pkg/ffmpeg"
	"github.com/iconidentify/upclip/pkg/llm"
)

// AnalyzerService finds clip-worthy moments in a video.
type AnalyzerService struct {
	prober  VideoProber
	frames  FrameExtractor
	model   llm.Client
	storage config.StorageConfig
	cfg     config.AnalyzerConfig
	events  domain.EventEmitter
	logger  *slog.Logger

	// replaced in tests
	sleep  func(ctx context.Context, d time.Duration) error
	encode func(path string) (string, error)
}

// NewAnalyzerService creates a new analyzer service.
func NewAnalyzerService(
	prober VideoProber,
	frames FrameExtractor,
	model llm.Client,
	storage config.StorageConfig,
	cfg config.AnalyzerConfig,
	events domain.EventEmitter,
	logger *slog.Logger,
) *AnalyzerService {
	if events == nil {
		events = domain.NopEmitter{}
	}
	return &AnalyzerService{
		prober:  prober,
		frames:  frames,
		model:   model,
		storage: storage,
		cfg:     cfg,
		events:  events,
		logger:  logger,
		sleep:   sleepContext,
		encode:  llm.EncodeImageDataURL,
	}
}

// Analyze returns the moments the model picked out of the video. A batch
// that fails is skipped; the call fails only when every batch failed.
func (s *AnalyzerService) Analyze(ctx context.Context, videoPath string) ([]domain.Moment, error) {
	if !fileExists(videoPath) {
		return nil, domain.NewOpError("analyze", videoPath, domain.ErrVideoNotFound)
	}

	start := time.Now()
	duration, err := s.prober.ProbeDuration(ctx, videoPath)
	if err != nil {
		s.logger.Error("probe failed", "path", videoPath, "error", err)
		return nil, domain.NewOpError("analyze", videoPath, fmt.Errorf("%w: %w", domain.ErrProbeFailed, err))
	}

	workDir := filepath.Join(s.storage.FramesDir(), uuid.NewString())
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			s.logger.Warn("failed to remove frames dir", "dir", workDir, "error", err)
		}
	}()

	refs, mode, err := s.extractFrames(ctx, videoPath, duration, workDir)
	if err != nil {
		s.events.EmitError(domain.EventCategoryAnalysis, "analyzer", "Frame extraction failed", domain.EventMetadata{
			"video": videoPath,
			"error": err.Error(),
		})
		return nil, domain.NewOpError("analyze", videoPath, fmt.Errorf("%w: %w", domain.ErrFramesFailed, err))
	}

	frames, err := s.encodeFrames(ctx, refs)
	if err != nil {
		return nil, domain.NewOpError("analyze", videoPath, fmt.Errorf("%w: %w", domain.ErrFramesFailed, err))
	}

	s.logger.Info("frames ready",
		"path", videoPath,
		"mode", mode,
		"frames", len(frames),
		"duration", duration,
	)

	moments, err := s.runBatches(ctx, videoPath, refs, frames, duration)
	if err != nil {
		return nil, err
	}

	s.logger.Info("analysis complete",
		"path", videoPath,
		"moments", len(moments),
		"elapsed", time.Since(start).String(),
	)
	s.events.EmitSuccess(domain.EventCategoryAnalysis, "analyzer", "Analysis complete", domain.EventMetadata{
		"video":   videoPath,
		"mode":    mode,
		"frames":  len(frames),
		"moments": len(moments),
	})
	return moments, nil
}

const (
	modeScene    = "scene"
	modeInterval = "interval"
)

// extractFrames tries scene-change frames first and falls back to fixed
// interval sampling. The result is capped at MaxFrames.
func (s *AnalyzerService) extractFrames(ctx context.Context, videoPath string, duration float64, workDir string) ([]domain.FrameRef, string, error) {
	opts := ffmpeg.FrameOptions{
		OutputDir: workDir,
		MaxWidth:  s.cfg.FrameWidth,
		Quality:   s.cfg.FrameQuality,
	}
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, "", fmt.Errorf("create frames dir: %w", err)
	}

	scenes, err := s.frames.DetectScenes(ctx, videoPath, s.cfg.SceneThreshold, filepath.Join(workDir, "scenes.log"))
	if err != nil {
		s.logger.Warn("scene detection failed, falling back to interval sampling", "path", videoPath, "error", err)
	}
	if len(scenes) > 0 {
		opts.Prefix = "scene"
		paths, err := s.frames.ExtractSceneFrames(ctx, videoPath, s.cfg.SceneThreshold, opts)
		switch {
		case err != nil:
			s.logger.Warn("scene frame extraction failed, falling back to interval sampling", "path", videoPath, "error", err)
		case len(paths) > 0:
			return sceneFrameRefs(paths, scenes, duration, s.cfg.MaxFrames), modeScene, nil
		}
	}

	if ctx.Err() != nil {
		return nil, "", ctx.Err()
	}
	s.events.EmitInfo(domain.EventCategoryAnalysis, "analyzer", "No scene changes used, sampling at a fixed interval", domain.EventMetadata{
		"video":    videoPath,
		"interval": s.cfg.FrameInterval,
	})

	opts.Prefix = "frame"
	paths, err := s.frames.ExtractIntervalFrames(ctx, videoPath, s.cfg.FrameInterval, opts)
	if err != nil {
		return nil, "", err
	}
	if len(paths) == 0 {
		return nil, "", fmt.Errorf("no frames extracted")
	}
	return intervalFrameRefs(paths, duration, s.cfg.MaxFrames), modeInterval, nil
}

// sceneFrameRefs pairs scene frames with their scene times. Each frame spans
// from its scene to the next selected one. If the frame and scene counts
// disagree the frames are spread evenly instead.
func sceneFrameRefs(paths []string, scenes []domain.Scene, duration float64, limit int) []domain.FrameRef {
	if len(paths) != len(scenes) {
		return intervalFrameRefs(paths, duration, limit)
	}

	idx := evenIndices(len(paths), limit)
	refs := make([]domain.FrameRef, len(idx))
	for i, k := range idx {
		end := duration
		if i+1 < len(idx) {
			end = scenes[idx[i+1]].Time
		}
		start := math.Min(scenes[k].Time, duration)
		refs[i] = domain.FrameRef{
			Number: i + 1,
			Path:   paths[k],
			Start:  start,
			End:    math.Max(end, start),
			Score:  scenes[k].Score,
		}
	}
	return refs
}

// intervalFrameRefs spreads frames evenly over the video using their
// position among all extracted frames.
func intervalFrameRefs(paths []string, duration float64, limit int) []domain.FrameRef {
	total := len(paths)
	perFrame := duration / float64(total)

	idx := evenIndices(total, limit)
	refs := make([]domain.FrameRef, len(idx))
	for i, k := range idx {
		refs[i] = domain.FrameRef{
			Number: i + 1,
			Path:   paths[k],
			Start:  float64(k) * perFrame,
			End:    math.Min(float64(k+1)*perFrame, duration),
		}
	}
	return refs
}

// evenIndices picks at most limit indices out of n, spread evenly and
// always including the first.
func evenIndices(n, limit int) []int {
	if limit <= 0 || n <= limit {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	idx := make([]int, limit)
	for i := range idx {
		idx[i] = i * n / limit
	}
	return idx
}

// encodeFrames base64-encodes every frame in parallel. Results are written
// by index so their order matches refs.
func (s *AnalyzerService) encodeFrames(ctx context.Context, refs []domain.FrameRef) ([]llm.Frame, error) {
	frames := make([]llm.Frame, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, ref := range refs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			dataURL, err := s.encode(ref.Path)
			if err != nil {
				return fmt.Errorf("encode frame %d: %w", ref.Number, err)
			}
			frames[i] = llm.Frame{
				Number:  ref.Number,
				DataURL: dataURL,
				Time:    ref.Start,
				Score:   ref.Score,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return frames, nil
}

// runBatches sends frames to the model one batch at a time, sleeping
// between batches.
func (s *AnalyzerService) runBatches(ctx context.Context, videoPath string, refs []domain.FrameRef, frames []llm.Frame, duration float64) ([]domain.Moment, error) {
	batchSize := s.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 5
	}

	moments := []domain.Moment{}
	batches, failed := 0, 0

	for lo := 0; lo < len(frames); lo += batchSize {
		hi := min(lo+batchSize, len(frames))

		if lo > 0 {
			if err := s.sleep(ctx, s.cfg.BatchDelay); err != nil {
				return nil, domain.NewOpError("analyze", videoPath, err)
			}
		}
		batches++

		suggestions, err := s.model.AnalyzeFrames(ctx, llm.FramesRequest{
			Frames:      frames[lo:hi],
			TotalFrames: len(frames),
			Duration:    duration,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, domain.NewOpError("analyze", videoPath, ctx.Err())
			}
			failed++
			s.logger.Warn("analysis batch failed, continuing",
				"path", videoPath,
				"batch", batches,
				"frames", fmt.Sprintf("%d-%d", lo+1, hi),
				"error", err,
			)
			s.events.EmitWarning(domain.EventCategoryAnalysis, "analyzer", "Analysis batch failed", domain.EventMetadata{
				"video": videoPath,
				"batch": batches,
				"error": err.Error(),
			})
			continue
		}

		for _, sug := range suggestions {
			// only frames sent in this batch are valid answers
			if sug.FrameNumber < lo+1 || sug.FrameNumber > hi {
				s.logger.Debug("dropping moment for frame outside batch", "frame", sug.FrameNumber, "batch", batches)
				continue
			}
			ref := refs[sug.FrameNumber-1]
			moments = append(moments, domain.NewMoment(
				domain.NewTimeRange(ref.Start, ref.End),
				sug.Description,
				sug.ViralPotential,
				sug.SuggestedTitle,
				sug.SuggestedHashtags,
			))
		}
	}

	if batches > 0 && failed == batches {
		s.events.EmitError(domain.EventCategoryAnalysis, "analyzer", "Every analysis batch failed", domain.EventMetadata{
			"video":   videoPath,
			"batches": batches,
		})
		return nil, domain.NewOpError("analyze", videoPath, domain.ErrModelFailed)
	}
	return moments, nil
}

// GenerateShortContent asks the model for editing advice for the frame at
// timestamp.
func (s *AnalyzerService) GenerateShortContent(ctx context.Context, videoPath, timestamp string) (string, error) {
	if !fileExists(videoPath) {
		return "", domain.NewOpError("generate-short", videoPath, domain.ErrVideoNotFound)
	}
	seconds, err := domain.ParseClock(timestamp)
	if err != nil {
		return "", domain.NewOpError("generate-short", videoPath, err)
	}

	workDir := filepath.Join(s.storage.FramesDir(), uuid.NewString())
	defer os.RemoveAll(workDir)

	framePath := filepath.Join(workDir, "frame.jpg")
	err = s.frames.ExtractFrameAt(ctx, videoPath, seconds, framePath, ffmpeg.FrameOptions{
		MaxWidth: s.cfg.FrameWidth,
		Quality:  s.cfg.FrameQuality,
	})
	if err != nil {
		return "", domain.NewOpError("generate-short", videoPath, fmt.Errorf("%w: %w", domain.ErrFramesFailed, err))
	}

	dataURL, err := s.encode(framePath)
	if err != nil {
		return "", domain.NewOpError("generate-short", videoPath, fmt.Errorf("%w: %w", domain.ErrFramesFailed, err))
	}

	suggestions, err := s.model.SuggestEdits(ctx, llm.SuggestionRequest{
		Frame:     llm.Frame{Number: 1, DataURL: dataURL, Time: seconds},
		Timestamp: domain.FormatClock(seconds),
	})
	if err != nil {
		s.logger.Error("edit suggestions failed", "path", videoPath, "timestamp", timestamp, "error", err)
		return "", domain.NewOpError("generate-short", videoPath, fmt.Errorf("%w: %w", domain.ErrSuggestionFailed, err))
	}

	s.events.EmitInfo(domain.EventCategoryAnalysis, "analyzer", "Editing suggestions generated", domain.EventMetadata{
		"video":     videoPath,
		"timestamp": domain.FormatClock(seconds),
	})
	return suggestions, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
