package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatClock renders seconds as HH:MM:SS.mmm. Every component is floored,
// so 1.9999 renders as 00:00:01.999. Negative and NaN input render as zero.
func FormatClock(seconds float64) string {
	if math.IsNaN(seconds) || seconds <= 0 {
		return "00:00:00.000"
	}
	// The epsilon absorbs float error such as 0.1+0.2 before flooring.
	total := int64(math.Floor(seconds*1000 + 1e-6))
	ms := total % 1000
	s := (total / 1000) % 60
	m := (total / 60000) % 60
	h := total / 3600000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

// ParseClock accepts HH:MM:SS(.mmm), MM:SS(.mmm) or plain seconds.
func ParseClock(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, ErrInvalidTimestamp
	}

	parts := strings.Split(value, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimestamp, value)
	}

	var total float64
	for i, part := range parts {
		n, err := strconv.ParseFloat(part, 64)
		if err != nil || n < 0 || math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimestamp, value)
		}
		// Only the last component may carry a fraction.
		if i < len(parts)-1 && n != math.Trunc(n) {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimestamp, value)
		}
		total = total*60 + n
	}
	return total, nil
}

// TimeRange is a clip window rendered as clock strings.
type TimeRange struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Duration  string `json:"duration"`
}

// NewTimeRange builds a TimeRange from start and end offsets in seconds.
// An end before start collapses to a zero-length range.
func NewTimeRange(start, end float64) TimeRange {
	if end < start {
		end = start
	}
	return TimeRange{
		StartTime: FormatClock(start),
		EndTime:   FormatClock(end),
		Duration:  FormatClock(end - start),
	}
}

// FrameTimeRange maps a zero-based frame index onto an even split of the
// video: each of total frames covers duration/total seconds, clamped to the
// end of the video.
func FrameTimeRange(index, total int, duration float64) TimeRange {
	if total <= 0 || index < 0 {
		return NewTimeRange(0, 0)
	}
	perFrame := duration / float64(total)
	start := float64(index) * perFrame
	end := math.Min(float64(index+1)*perFrame, duration)
	return NewTimeRange(start, end)
}
