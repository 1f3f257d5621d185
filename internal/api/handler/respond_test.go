package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/iconidentify/upclip/internal/domain"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"sentinel", domain.ErrVideoNotFound, "Video file not found"},
		{"wrapped in op error", domain.NewOpError("edit", "/x", domain.ErrToolFailed), "Failed to edit video"},
		{"moment wins over timestamp", fmt.Errorf("%w: %w", domain.ErrInvalidMoment, domain.ErrInvalidTimestamp), "Invalid moment time range"},
		{"body too large", fmt.Errorf("read: %w", &http.MaxBytesError{Limit: 1}), "Video file is too large"},
		{"unknown uses fallback", errors.New("dial tcp: refused"), "Failed to upload video to YouTube"},
		{"deadline uses fallback", context.DeadlineExceeded, "Failed to upload video to YouTube"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := userMessage(tt.err, domain.ErrPublishFailed); got != tt.want {
				t.Errorf("userMessage = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInStorage(t *testing.T) {
	base := t.TempDir()
	if !inStorage(base, base+"/videos/a.mp4") {
		t.Error("file under the root should be accepted")
	}
	for _, p := range []string{"", base, base + "/../x.mp4", "/etc/passwd"} {
		if inStorage(base, p) {
			t.Errorf("%q should be rejected", p)
		}
	}
}
