package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/iconidentify/upclip/internal/domain"
)

// PublishService connects a YouTube account and uploads clips as Shorts.
// Auth and uploader are nil when publishing is not configured.
type PublishService struct {
	auth     Authenticator
	uploader VideoUploader
	tokens   CredentialStore
	events   domain.EventEmitter
	logger   *slog.Logger
}

// NewPublishService creates a new publish service.
func NewPublishService(auth Authenticator, uploader VideoUploader, tokens CredentialStore, events domain.EventEmitter, logger *slog.Logger) *PublishService {
	if events == nil {
		events = domain.NopEmitter{}
	}
	return &PublishService{
		auth:     auth,
		uploader: uploader,
		tokens:   tokens,
		events:   events,
		logger:   logger,
	}
}

// Enabled reports whether OAuth client credentials are configured.
func (s *PublishService) Enabled() bool {
	return s.auth != nil && s.uploader != nil
}

// Connected reports whether a refresh token is held.
func (s *PublishService) Connected() bool {
	return s.tokens.RefreshToken() != ""
}

// AuthURL returns the Google consent URL.
func (s *PublishService) AuthURL() (string, error) {
	if !s.Enabled() {
		return "", domain.ErrPublishingDisabled
	}
	return s.auth.AuthURL(), nil
}

// HandleCallback exchanges an authorization code, stores the resulting
// refresh token and returns it.
func (s *PublishService) HandleCallback(ctx context.Context, code, state string) (string, error) {
	if !s.Enabled() {
		return "", domain.ErrPublishingDisabled
	}

	token, err := s.auth.Exchange(ctx, code, state)
	if err != nil {
		s.logger.Warn("oauth code exchange failed", "error", err)
		s.events.EmitError(domain.EventCategoryAuth, "publisher", "YouTube authorization failed", domain.EventMetadata{
			"error": err.Error(),
		})
		if errors.Is(err, domain.ErrNoRefreshToken) || errors.Is(err, domain.ErrAuthFailed) {
			return "", domain.NewOpError("oauth-callback", "", err)
		}
		return "", domain.NewOpError("oauth-callback", "", fmt.Errorf("%w: %w", domain.ErrAuthFailed, err))
	}

	s.store(token)
	s.events.EmitSuccess(domain.EventCategoryAuth, "publisher", "YouTube account connected", nil)
	return token, nil
}

// SetRefreshToken installs a refresh token obtained elsewhere, such as the
// copy the browser keeps.
func (s *PublishService) SetRefreshToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.NewOpError("set-token", "", domain.ErrNoRefreshToken)
	}
	s.store(token)
	s.events.EmitInfo(domain.EventCategoryAuth, "publisher", "YouTube credential set", nil)
	return nil
}

// store keeps the token. A persistence failure leaves the in-memory
// token usable, so it is logged rather than returned.
func (s *PublishService) store(token string) {
	if err := s.tokens.SetRefreshToken(token); err != nil {
		s.logger.Error("failed to persist refresh token", "error", err)
		s.events.EmitWarning(domain.EventCategoryAuth, "publisher", "YouTube credential not persisted", domain.EventMetadata{
			"error": err.Error(),
		})
	}
}

// Publish uploads a clip and returns its Shorts URL.
func (s *PublishService) Publish(ctx context.Context, req domain.PublishRequest) (*domain.PublishResult, error) {
	if !s.Enabled() {
		return nil, domain.ErrPublishingDisabled
	}
	if !fileExists(req.VideoPath) {
		return nil, domain.NewOpError("publish", req.VideoPath, domain.ErrVideoNotFound)
	}
	token := s.tokens.RefreshToken()
	if token == "" {
		return nil, domain.NewOpError("publish", req.VideoPath, domain.ErrNotAuthenticated)
	}
	if req.Tags == nil {
		req.Tags = []string{}
	}

	id, err := s.uploader.Upload(ctx, token, req)
	if err != nil {
		s.logger.Error("youtube upload failed", "path", req.VideoPath, "error", err)
		s.events.EmitError(domain.EventCategoryPublish, "publisher", "YouTube upload failed", domain.EventMetadata{
			"video": req.VideoPath,
			"error": err.Error(),
		})
		return nil, domain.NewOpError("publish", req.VideoPath, fmt.Errorf("%w: %w", domain.ErrPublishFailed, err))
	}
	if id == "" {
		return nil, domain.NewOpError("publish", req.VideoPath, domain.ErrPublishFailed)
	}

	result := &domain.PublishResult{
		VideoID:       id,
		VideoURL:      domain.ShortsURL(id),
		Title:         req.Title,
		Description:   req.Description,
		Tags:          req.Tags,
		PrivacyStatus: req.PrivacyStatus(),
	}

	s.logger.Info("published to youtube", "video_id", id, "privacy", result.PrivacyStatus, "path", req.VideoPath)
	s.events.EmitSuccess(domain.EventCategoryPublish, "publisher", "Published to YouTube", domain.EventMetadata{
		"video_id":  id,
		"video_url": result.VideoURL,
		"privacy":   result.PrivacyStatus,
	})
	return result, nil
}
