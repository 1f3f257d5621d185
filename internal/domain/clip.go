package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// OutputFormat is the container of an edited clip.
type OutputFormat string

const (
	FormatMP4 OutputFormat = "mp4"
	FormatMOV OutputFormat = "mov"
	FormatGIF OutputFormat = "gif"
)

// ParseOutputFormat normalizes a requested format. Empty means mp4.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatMP4, nil
	case FormatMP4, FormatMOV, FormatGIF:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
}

// HasAudio reports whether the container carries an audio track.
func (f OutputFormat) HasAudio() bool {
	return f != FormatGIF
}

// Resolution names a target output size.
type Resolution string

const (
	Resolution1080p Resolution = "1080p"
	Resolution720p  Resolution = "720p"
	Resolution480p  Resolution = "480p"
)

// Scale returns the ffmpeg scale argument. Unknown names fall back to 720p.
func (r Resolution) Scale() string {
	switch r {
	case Resolution1080p:
		return "1920:1080"
	case Resolution480p:
		return "854:480"
	default:
		return "1280:720"
	}
}

// Seconds is a duration in seconds that decodes from a JSON number, a
// numeric string or a clock string ("00:00:12.500").
type Seconds float64

func (s *Seconds) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = 0
		return nil
	}
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		if strings.TrimSpace(str) == "" {
			*s = 0
			return nil
		}
		v, err := ParseClock(str)
		if err != nil {
			return err
		}
		*s = Seconds(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Seconds(v)
	return nil
}

// EditRequest asks for one moment of a video to be cut and dressed up.
type EditRequest struct {
	VideoPath       string     `json:"videoPath"`
	Moment          Moment     `json:"moment"`
	OutputFormat    string     `json:"outputFormat"`
	Resolution      Resolution `json:"resolution,omitempty"`
	IncludeCaption  bool       `json:"includeCaption"`
	IncludeHashtags bool       `json:"includeHashtags"`
	CustomDuration  Seconds    `json:"customDuration,omitempty"`
}

// EditResult describes the produced clip.
type EditResult struct {
	OutputPath string  `json:"outputPath"`
	Duration   float64 `json:"duration"`
	Format     string  `json:"format"`
	Resolution string  `json:"resolution,omitempty"`
	FileSize   int64   `json:"fileSize"`
	URL        string  `json:"url,omitempty"`
}
