// Package youtube authorizes against Google OAuth and publishes Shorts
// through the YouTube Data API v3.
package youtube

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	yt "google.golang.org/api/youtube/v3"

	"github.com/iconidentify/upclip/internal/config"
	"github.com/iconidentify/upclip/internal/domain"
)

// stateTTL bounds how long an issued auth URL stays redeemable.
const stateTTL = 10 * time.Minute

// OAuth builds consent URLs and exchanges authorization codes.
type OAuth struct {
	config *oauth2.Config

	mu     sync.Mutex
	states map[string]time.Time
	now    func() time.Time
}

// NewOAuth creates an OAuth helper for the configured client.
func NewOAuth(cfg config.YouTubeConfig) *OAuth {
	return &OAuth{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint:     google.Endpoint,
			Scopes:       []string{yt.YoutubeUploadScope, yt.YoutubeScope},
		},
		states: make(map[string]time.Time),
		now:    time.Now,
	}
}

// AuthURL returns a consent URL requesting offline access. The prompt is
// forced so Google issues a refresh token on every grant.
func (o *OAuth) AuthURL() string {
	state := uuid.NewString()

	o.mu.Lock()
	now := o.now()
	for s, issued := range o.states {
		if now.Sub(issued) > stateTTL {
			delete(o.states, s)
		}
	}
	o.states[state] = now
	o.mu.Unlock()

	return o.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a refresh token. A non-empty
// state must be one issued by AuthURL and is consumed.
func (o *OAuth) Exchange(ctx context.Context, code, state string) (string, error) {
	if code == "" {
		return "", fmt.Errorf("%w: missing code", domain.ErrAuthFailed)
	}
	if state != "" && !o.consumeState(state) {
		return "", fmt.Errorf("%w: invalid or expired state", domain.ErrAuthFailed)
	}

	tok, err := o.config.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrAuthFailed, err)
	}
	if tok.RefreshToken == "" {
		return "", domain.ErrNoRefreshToken
	}
	return tok.RefreshToken, nil
}

// TokenSource returns an auto-refreshing source for a stored refresh token.
func (o *OAuth) TokenSource(ctx context.Context, refreshToken string) oauth2.TokenSource {
	return o.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
}

func (o *OAuth) consumeState(state string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	issued, ok := o.states[state]
	if !ok {
		return false
	}
	delete(o.states, state)
	return o.now().Sub(issued) <= stateTTL
}
