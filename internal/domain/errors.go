package domain

import "errors"

// Domain errors. The messages double as the user-facing error text returned
// by the HTTP layer, so keep them readable.
var (
	// ErrNoFile is returned when an upload request carries no file part.
	ErrNoFile = errors.New("No video file uploaded")

	// ErrInvalidFileType is returned when the uploaded part is not an allowed video type.
	ErrInvalidFileType = errors.New("Invalid file type. Only video files are allowed.")

	// ErrFileTooLarge is returned when an upload exceeds the configured size limit.
	ErrFileTooLarge = errors.New("Video file is too large")

	// ErrSaveFailed is returned when an upload cannot be written to storage.
	ErrSaveFailed = errors.New("Failed to save video file")

	// ErrVideoNotFound is returned when a referenced video path does not exist.
	ErrVideoNotFound = errors.New("Video file not found")

	// ErrProbeFailed is returned when the video duration cannot be determined.
	ErrProbeFailed = errors.New("Failed to get video duration")

	// ErrFramesFailed is returned when frame extraction fails.
	ErrFramesFailed = errors.New("Failed to process video frames")

	// ErrModelFailed is returned when no analysis batch produced a model reply.
	ErrModelFailed = errors.New("Failed to analyze video for viral moments")

	// ErrSuggestionFailed is returned when editing suggestions cannot be generated.
	ErrSuggestionFailed = errors.New("Failed to generate editing suggestions")

	// ErrToolFailed is returned when an ffmpeg edit step fails.
	ErrToolFailed = errors.New("Failed to edit video")

	// ErrInvalidFormat is returned for an unsupported output container.
	ErrInvalidFormat = errors.New("Invalid output format")

	// ErrInvalidMoment is returned when an edit request has no usable time range.
	ErrInvalidMoment = errors.New("Invalid moment time range")

	// ErrInvalidTimestamp is returned when a clock string cannot be parsed.
	ErrInvalidTimestamp = errors.New("Invalid timestamp")

	// ErrPublishFailed is returned when the upload to YouTube fails.
	ErrPublishFailed = errors.New("Failed to upload video to YouTube")

	// ErrNotAuthenticated is returned when publishing without a stored credential.
	ErrNotAuthenticated = errors.New("YouTube account not connected")

	// ErrNoRefreshToken is returned when the OAuth exchange yields no refresh token.
	ErrNoRefreshToken = errors.New("No refresh token received")

	// ErrAuthFailed is returned when the OAuth code exchange fails.
	ErrAuthFailed = errors.New("Failed to authenticate with YouTube")

	// ErrPublishingDisabled is returned when no YouTube client credentials are configured.
	ErrPublishingDisabled = errors.New("YouTube publishing is not configured")
)

// OpError wraps an error with the operation and file it concerns.
type OpError struct {
	Op   string
	Path string
	Err  error
}

func (e *OpError) Error() string {
	if e.Path != "" {
		return e.Op + " [" + e.Path + "]: " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// NewOpError creates a new OpError.
func NewOpError(op, path string, err error) *OpError {
	return &OpError{
		Op:   op,
		Path: path,
		Err:  err,
	}
}
