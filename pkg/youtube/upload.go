package youtube

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/iconidentify/upclip/internal/domain"
)

// Uploader publishes videos with the YouTube Data API.
type Uploader struct {
	oauth *OAuth
	opts  []option.ClientOption
}

// NewUploader creates an uploader. Extra client options are appended after
// the token source, so tests can point it at a fake endpoint.
func NewUploader(oauth *OAuth, opts ...option.ClientOption) *Uploader {
	return &Uploader{oauth: oauth, opts: opts}
}

// Upload inserts the video and returns its id.
func (u *Uploader) Upload(ctx context.Context, refreshToken string, req domain.PublishRequest) (string, error) {
	opts := append([]option.ClientOption{
		option.WithTokenSource(u.oauth.TokenSource(ctx, refreshToken)),
	}, u.opts...)

	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("create youtube service: %w", err)
	}

	f, err := os.Open(req.VideoPath)
	if err != nil {
		return "", fmt.Errorf("open video: %w", err)
	}
	defer f.Close()

	video := &yt.Video{
		Snippet: &yt.VideoSnippet{
			Title:       req.Title,
			Description: req.Description,
			Tags:        req.Tags,
		},
		Status: &yt.VideoStatus{
			PrivacyStatus:           req.PrivacyStatus(),
			SelfDeclaredMadeForKids: false,
			ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
		},
	}

	resp, err := svc.Videos.Insert([]string{"snippet", "status"}, video).
		Media(f).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("insert video: %w", err)
	}
	return resp.Id, nil
}
