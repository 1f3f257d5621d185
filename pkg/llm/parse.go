package llm

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ParseMoments decodes a model reply into moment suggestions. It accepts an
// object with a "moments" array, a single moment object or a bare array,
// optionally wrapped in a markdown fence. Entries that fail to decode or lack
// a positive frameNumber are dropped. Unusable content yields an empty slice.
func ParseMoments(content string) []MomentSuggestion {
	out := []MomentSuggestion{}

	raw := extractJSON(content)
	if raw == "" {
		return out
	}

	var entries []json.RawMessage
	switch raw[0] {
	case '[':
		if err := json.Unmarshal([]byte(raw), &entries); err != nil {
			return out
		}
	case '{':
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
			return out
		}
		if moments, ok := envelope["moments"]; ok {
			if err := json.Unmarshal(moments, &entries); err != nil {
				return out
			}
		} else {
			entries = []json.RawMessage{json.RawMessage(raw)}
		}
	}

	for _, e := range entries {
		var m rawMoment
		if err := json.Unmarshal(e, &m); err != nil {
			continue
		}
		fn := float64(m.FrameNumber)
		if fn < 1 || fn != math.Trunc(fn) {
			continue
		}
		out = append(out, MomentSuggestion{
			FrameNumber:       int(fn),
			Description:       strings.TrimSpace(m.Description),
			ViralPotential:    clampPotential(float64(m.ViralPotential)),
			SuggestedTitle:    strings.TrimSpace(m.SuggestedTitle),
			SuggestedHashtags: cleanHashtags(m.SuggestedHashtags),
		})
	}
	return out
}

type rawMoment struct {
	FrameNumber       flexNumber  `json:"frameNumber"`
	Description       string      `json:"description"`
	ViralPotential    flexNumber  `json:"viralPotential"`
	SuggestedTitle    string      `json:"suggestedTitle"`
	SuggestedHashtags flexStrings `json:"suggestedHashtags"`
}

// flexNumber accepts 7, 7.5 or "7".
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return err
		}
		*n = flexNumber(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = flexNumber(v)
	return nil
}

// flexStrings accepts ["#a", "#b"] or "#a #b".
type flexStrings []string

func (s *flexStrings) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = strings.FieldsFunc(str, func(r rune) bool { return r == ',' || r == ' ' })
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*s = list
	return nil
}

// clampPotential rounds the score to a whole number in 1..10.
func clampPotential(v float64) int {
	if math.IsNaN(v) || v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return int(math.Round(v))
}

func cleanHashtags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// extractJSON strips markdown fences and returns the outermost JSON object
// or array, or "" when there is none.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}
	closer := "}"
	if s[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(s, closer)
	if end < start {
		return ""
	}
	return s[start : end+1]
}
