package youtube

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/iconidentify/upclip/pkg/crypto"
)

// TokenStore holds the single process-wide refresh token. When a path and
// passphrase are configured the token is also kept on disk, sealed.
type TokenStore struct {
	path       string
	passphrase string
	logger     *slog.Logger

	// persistMu orders memory updates with their disk writes, so the file
	// always holds the latest token.
	persistMu sync.Mutex

	mu           sync.RWMutex
	refreshToken string
	updatedAt    time.Time
}

type storedToken struct {
	RefreshToken string    `json:"refresh_token"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewTokenStore creates a token store. An empty path or passphrase keeps the
// token in memory only.
func NewTokenStore(path, passphrase string, logger *slog.Logger) *TokenStore {
	return &TokenStore{
		path:       path,
		passphrase: passphrase,
		logger:     logger,
	}
}

// Persistent reports whether tokens survive a restart.
func (s *TokenStore) Persistent() bool {
	return s.path != "" && s.passphrase != ""
}

// Load reads a previously sealed token. A missing file is not an error.
func (s *TokenStore) Load() error {
	if !s.Persistent() {
		return nil
	}

	data, err := crypto.ReadSealedFile(s.path, s.passphrase)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load token store: %w", err)
	}

	var st storedToken
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("decode token store: %w", err)
	}

	s.mu.Lock()
	s.refreshToken = st.RefreshToken
	s.updatedAt = st.UpdatedAt
	s.mu.Unlock()

	s.logger.Info("loaded youtube credential", "path", s.path, "updated_at", st.UpdatedAt)
	return nil
}

// RefreshToken returns the current token, or "" when none is set.
func (s *TokenStore) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// UpdatedAt returns when the token was last set.
func (s *TokenStore) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// SetRefreshToken replaces the token and persists it when configured.
// The in-memory value is updated even if persisting fails.
func (s *TokenStore) SetRefreshToken(token string) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	now := time.Now().UTC()

	s.mu.Lock()
	s.refreshToken = token
	s.updatedAt = now
	s.mu.Unlock()

	if !s.Persistent() {
		return nil
	}

	data, err := json.Marshal(storedToken{RefreshToken: token, UpdatedAt: now})
	if err != nil {
		return fmt.Errorf("encode token store: %w", err)
	}
	if err := crypto.WriteSealedFile(s.path, data, s.passphrase); err != nil {
		return fmt.Errorf("save token store: %w", err)
	}
	return nil
}
