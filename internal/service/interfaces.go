package service

import (
	"context"

	"github.com/iconidentify/upclip/internal/domain"
	"github.com/iconidentify/upclip/pkg/ffmpeg"
)

// The media interfaces below are satisfied by *ffmpeg.VideoProcessor.

// VideoProber reads container metadata.
type VideoProber interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

// ClipProber also reports which streams a clip carries.
type ClipProber interface {
	VideoProber
	GetVideoInfo(ctx context.Context, path string) (*ffmpeg.VideoInfo, error)
}

// FrameExtractor pulls stills out of a video.
type FrameExtractor interface {
	DetectScenes(ctx context.Context, videoPath string, threshold float64, logPath string) ([]domain.Scene, error)
	ExtractSceneFrames(ctx context.Context, videoPath string, threshold float64, opts ffmpeg.FrameOptions) ([]string, error)
	ExtractIntervalFrames(ctx context.Context, videoPath string, intervalSec int, opts ffmpeg.FrameOptions) ([]string, error)
	ExtractFrameAt(ctx context.Context, videoPath string, seconds float64, outPath string, opts ffmpeg.FrameOptions) error
}

// ClipEditor runs the individual edit steps.
type ClipEditor interface {
	Trim(ctx context.Context, in, out string, start, duration float64, format domain.OutputFormat) error
	Fade(ctx context.Context, in, out string, clipDuration, fade float64, withAudio bool, format domain.OutputFormat) error
	Scale(ctx context.Context, in, out, scale string, format domain.OutputFormat) error
	DrawText(ctx context.Context, in, out string, overlay ffmpeg.TextOverlay, format domain.OutputFormat) error
}

// Authenticator runs the OAuth consent flow.
type Authenticator interface {
	AuthURL() string
	Exchange(ctx context.Context, code, state string) (string, error)
}

// VideoUploader publishes a finished clip and returns the platform id.
type VideoUploader interface {
	Upload(ctx context.Context, refreshToken string, req domain.PublishRequest) (string, error)
}

// CredentialStore holds the process-wide refresh token.
type CredentialStore interface {
	RefreshToken() string
	SetRefreshToken(token string) error
}
