package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/iconidentify/upclip/internal/domain"
	"github.com/iconidentify/upclip/internal/service"
)

// maxJSONBody bounds JSON request bodies; uploads go through multipart.
const maxJSONBody = 1 << 20

// userErrors are checked in order; the first match supplies the message.
// Wrapping errors come before the ones they may wrap.
var userErrors = []error{
	domain.ErrNoFile,
	domain.ErrInvalidFileType,
	domain.ErrFileTooLarge,
	domain.ErrSaveFailed,
	domain.ErrVideoNotFound,
	domain.ErrProbeFailed,
	domain.ErrFramesFailed,
	domain.ErrModelFailed,
	domain.ErrSuggestionFailed,
	domain.ErrInvalidFormat,
	domain.ErrInvalidMoment,
	domain.ErrInvalidTimestamp,
	domain.ErrToolFailed,
	domain.ErrPublishingDisabled,
	domain.ErrNotAuthenticated,
	domain.ErrNoRefreshToken,
	domain.ErrAuthFailed,
	domain.ErrPublishFailed,
}

// userMessage picks the message shown to the caller. Unknown errors get
// fallback so internal details stay in the logs.
func userMessage(err, fallback error) string {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return domain.ErrFileTooLarge.Error()
	}
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return fallback.Error()
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError reports a pipeline failure. Every failure is a 400.
func writeServiceError(w http.ResponseWriter, err, fallback error) {
	writeError(w, http.StatusBadRequest, userMessage(err, fallback))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// inStorage reports whether path lies under the storage root. Paths outside
// it are treated as missing so the API cannot reach arbitrary files.
func inStorage(basePath, path string) bool {
	return service.MediaURL(basePath, path) != ""
}
