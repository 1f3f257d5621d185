// Package llm talks to an OpenAI-compatible multimodal chat model.
package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/iconidentify/upclip/internal/config"
	"github.com/iconidentify/upclip/internal/domain"
)

// NoSuggestions is returned by SuggestEdits when the model replies with nothing.
const NoSuggestions = "No editing suggestions available"

// Client is the narrow surface the analyzer needs from the model.
type Client interface {
	// AnalyzeFrames asks for viral moments among one batch of frames.
	// A malformed reply yields an empty slice, not an error.
	AnalyzeFrames(ctx context.Context, req FramesRequest) ([]MomentSuggestion, error)
	// SuggestEdits returns free-text editing advice for a single frame.
	SuggestEdits(ctx context.Context, req SuggestionRequest) (string, error)
}

// Frame is one encoded still plus the labels the model sees for it.
type Frame struct {
	Number  int     // one-based across the whole video
	DataURL string  // data:image/jpeg;base64,...
	Time    float64 // seconds into the video
	Score   float64 // scene change score, 0 for interval sampling
}

// FramesRequest is one batch of frames from a video.
type FramesRequest struct {
	Frames      []Frame
	TotalFrames int
	Duration    float64
}

// SuggestionRequest asks for editing advice at a timestamp.
type SuggestionRequest struct {
	Frame     Frame
	Timestamp string
}

// MomentSuggestion is one moment as returned by the model.
type MomentSuggestion struct {
	FrameNumber       int
	Description       string
	ViralPotential    int
	SuggestedTitle    string
	SuggestedHashtags []string
}

// OpenAIClient implements Client with go-openai.
type OpenAIClient struct {
	client              *openai.Client
	model               string
	maxTokens           int
	suggestionMaxTokens int
	imageDetail         openai.ImageURLDetail
}

// NewClient creates a new model client.
func NewClient(cfg config.LLMConfig) *OpenAIClient {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenAIClient{
		client:              openai.NewClientWithConfig(oc),
		model:               cfg.Model,
		maxTokens:           cfg.MaxTokens,
		suggestionMaxTokens: cfg.SuggestionMaxTokens,
		imageDetail:         openai.ImageURLDetail(cfg.ImageDetail),
	}
}

// AnalyzeFrames implements Client.
func (c *OpenAIClient) AnalyzeFrames(ctx context.Context, req FramesRequest) ([]MomentSuggestion, error) {
	if len(req.Frames) == 0 {
		return []MomentSuggestion{}, nil
	}

	parts := []openai.ChatMessagePart{{
		Type: openai.ChatMessagePartTypeText,
		Text: buildMomentsPrompt(req),
	}}
	for _, f := range req.Frames {
		parts = append(parts,
			openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: frameLabel(f),
			},
			openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    f.DataURL,
					Detail: c.imageDetail,
				},
			},
		)
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return []MomentSuggestion{}, nil
	}
	return ParseMoments(resp.Choices[0].Message.Content), nil
}

// SuggestEdits implements Client.
func (c *OpenAIClient) SuggestEdits(ctx context.Context, req SuggestionRequest) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: c.suggestionMaxTokens,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: buildSuggestionPrompt(req)},
				{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    req.Frame.DataURL,
						Detail: c.imageDetail,
					},
				},
			},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return NoSuggestions, nil
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return NoSuggestions, nil
	}
	return text, nil
}

// EncodeImageDataURL reads an image file and returns it as a data URL.
func EncodeImageDataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}

	var mimeType string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		mimeType = "image/png"
	case ".webp":
		mimeType = "image/webp"
	default:
		mimeType = "image/jpeg"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func frameLabel(f Frame) string {
	if f.Score > 0 {
		return fmt.Sprintf("Frame %d at %s (scene change score %.2f):", f.Number, domain.FormatClock(f.Time), f.Score)
	}
	return fmt.Sprintf("Frame %d at %s:", f.Number, domain.FormatClock(f.Time))
}

func buildMomentsPrompt(req FramesRequest) string {
	var sb strings.Builder
	sb.WriteString("Analyze these frames from a video and identify potential viral moments for short-form platforms.\n")
	if req.Duration > 0 {
		fmt.Fprintf(&sb, "The video is %s long", domain.FormatClock(req.Duration))
		if req.TotalFrames > 0 {
			fmt.Fprintf(&sb, " and %d frames were sampled from it", req.TotalFrames)
		}
		sb.WriteString(". This message shows some of them, each preceded by its label.\n")
	}
	sb.WriteString(`For each moment:
1. Give the frame number exactly as written in the frame's label
2. Describe what makes it engaging
3. Rate its viral potential (1-10)
4. Suggest a catchy title
5. Suggest relevant hashtags
Only pick frames that are genuinely engaging; an empty list is fine.
Respond with a JSON object with an array called "moments" whose items have these fields: frameNumber, description, viralPotential, suggestedTitle, suggestedHashtags.
Example:
{
  "moments": [
    {
      "frameNumber": 1,
      "description": "...",
      "viralPotential": 8,
      "suggestedTitle": "...",
      "suggestedHashtags": ["#..."]
    }
  ]
}`)
	return sb.String()
}

func buildSuggestionPrompt(req SuggestionRequest) string {
	var sb strings.Builder
	if req.Timestamp != "" {
		fmt.Fprintf(&sb, "This frame is from %s into the video. ", req.Timestamp)
	}
	sb.WriteString(`For this moment from the video, provide specific editing suggestions to make it more engaging:
1. Recommended duration
2. Suggested transitions or effects
3. Background music style
4. Caption placement
5. Any additional enhancement tips`)
	return sb.String()
}
