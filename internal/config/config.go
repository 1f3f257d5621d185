package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	FFmpeg   FFmpegConfig   `yaml:"ffmpeg"`
	Analyzer AnalyzerConfig `yaml:"analyzer"`
	LLM      LLMConfig      `yaml:"llm"`
	Editor   EditorConfig   `yaml:"editor"`
	YouTube  YouTubeConfig  `yaml:"youtube"`
	Events   EventsConfig   `yaml:"events"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host           string        `yaml:"host" envconfig:"SERVER_HOST"`
	Port           int           `yaml:"port" envconfig:"SERVER_PORT"`
	APIKey         string        `yaml:"api_key" envconfig:"API_KEY"` // optional; empty disables auth
	CORSOrigin     string        `yaml:"cors_origin" envconfig:"CORS_ORIGIN"`
	ReadTimeout    time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT"`
	WriteTimeout   time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT"`
	RequestTimeout time.Duration `yaml:"request_timeout" envconfig:"SERVER_REQUEST_TIMEOUT"`
}

// StorageConfig holds filesystem storage configuration.
type StorageConfig struct {
	BasePath    string `yaml:"base_path" envconfig:"STORAGE_PATH"`
	MaxFileSize int64  `yaml:"max_file_size" envconfig:"MAX_FILE_SIZE"`
}

// VideosDir is where uploads are stored.
func (s StorageConfig) VideosDir() string { return filepath.Join(s.BasePath, "videos") }

// FramesDir is the scratch area for extracted stills.
func (s StorageConfig) FramesDir() string { return filepath.Join(s.BasePath, "frames") }

// EditedDir is where finished clips are written.
func (s StorageConfig) EditedDir() string { return filepath.Join(s.BasePath, "edited") }

// FFmpegConfig locates the external media tools.
type FFmpegConfig struct {
	FFmpegPath  string `yaml:"ffmpeg_path" envconfig:"FFMPEG_PATH"`
	FFprobePath string `yaml:"ffprobe_path" envconfig:"FFPROBE_PATH"`
}

// AnalyzerConfig controls frame selection and model batching.
type AnalyzerConfig struct {
	BatchSize      int           `yaml:"batch_size" envconfig:"ANALYZER_BATCH_SIZE"`
	BatchDelay     time.Duration `yaml:"batch_delay" envconfig:"ANALYZER_BATCH_DELAY"`
	SceneThreshold float64       `yaml:"scene_threshold" envconfig:"ANALYZER_SCENE_THRESHOLD"`
	FrameInterval  int           `yaml:"frame_interval" envconfig:"ANALYZER_FRAME_INTERVAL"` // seconds, fallback sampling
	MaxFrames      int           `yaml:"max_frames" envconfig:"ANALYZER_MAX_FRAMES"`
	FrameWidth     int           `yaml:"frame_width" envconfig:"ANALYZER_FRAME_WIDTH"`
	FrameQuality   int           `yaml:"frame_quality" envconfig:"ANALYZER_FRAME_QUALITY"`
}

// LLMConfig holds the multimodal model configuration.
type LLMConfig struct {
	APIKey              string        `yaml:"api_key" envconfig:"OPENAI_API_KEY"`
	BaseURL             string        `yaml:"base_url" envconfig:"OPENAI_BASE_URL"`
	Model               string        `yaml:"model" envconfig:"OPENAI_MODEL"`
	Timeout             time.Duration `yaml:"timeout" envconfig:"OPENAI_TIMEOUT"`
	MaxTokens           int           `yaml:"max_tokens" envconfig:"OPENAI_MAX_TOKENS"`
	SuggestionMaxTokens int           `yaml:"suggestion_max_tokens" envconfig:"OPENAI_SUGGESTION_MAX_TOKENS"`
	ImageDetail         string        `yaml:"image_detail" envconfig:"OPENAI_IMAGE_DETAIL"`
}

// EditorConfig holds clip styling options.
type EditorConfig struct {
	FadeDuration    float64 `yaml:"fade_duration" envconfig:"EDITOR_FADE_DURATION"`
	CaptionFontSize int     `yaml:"caption_font_size" envconfig:"EDITOR_CAPTION_FONT_SIZE"`
	HashtagFontSize int     `yaml:"hashtag_font_size" envconfig:"EDITOR_HASHTAG_FONT_SIZE"`
	FontFile        string  `yaml:"font_file" envconfig:"EDITOR_FONT_FILE"`
}

// YouTubeConfig holds OAuth client settings for publishing.
type YouTubeConfig struct {
	ClientID        string `yaml:"client_id" envconfig:"YOUTUBE_CLIENT_ID"`
	ClientSecret    string `yaml:"client_secret" envconfig:"YOUTUBE_CLIENT_SECRET"`
	RedirectURI     string `yaml:"redirect_uri" envconfig:"YOUTUBE_REDIRECT_URI"`
	TokenStorePath  string `yaml:"token_store_path" envconfig:"YOUTUBE_TOKEN_STORE_PATH"`
	TokenPassphrase string `yaml:"token_passphrase" envconfig:"YOUTUBE_TOKEN_PASSPHRASE"`
}

// Enabled reports whether OAuth client credentials are configured.
func (y YouTubeConfig) Enabled() bool {
	return y.ClientID != "" && y.ClientSecret != ""
}

// EventsConfig controls the activity log and its sinks.
type EventsConfig struct {
	RingBufferSize int      `yaml:"ring_buffer_size" envconfig:"EVENTS_RING_BUFFER_SIZE"`
	SQLitePath     string   `yaml:"sqlite_path" envconfig:"EVENTS_SQLITE_PATH"`
	RetentionDays  int      `yaml:"retention_days" envconfig:"EVENTS_RETENTION_DAYS"`
	KafkaBrokers   []string `yaml:"kafka_brokers" envconfig:"EVENTS_KAFKA_BROKERS"`
	KafkaTopic     string   `yaml:"kafka_topic" envconfig:"EVENTS_KAFKA_TOPIC"`
}

// Default returns the configuration used when neither file nor environment
// sets a value.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           9847,
			CORSOrigin:     "*",
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   15 * time.Minute,
			RequestTimeout: 10 * time.Minute,
		},
		Storage: StorageConfig{
			BasePath:    "uploads",
			MaxFileSize: 2 << 30, // 2GB
		},
		FFmpeg: FFmpegConfig{
			FFmpegPath:  "ffmpeg",
			FFprobePath: "ffprobe",
		},
		Analyzer: AnalyzerConfig{
			BatchSize:      5,
			BatchDelay:     2 * time.Second,
			SceneThreshold: 0.3,
			FrameInterval:  5,
			MaxFrames:      30,
			FrameWidth:     768,
			FrameQuality:   5,
		},
		LLM: LLMConfig{
			BaseURL:             "https://api.openai.com/v1",
			Model:               "gpt-4o",
			Timeout:             2 * time.Minute,
			MaxTokens:           1000,
			SuggestionMaxTokens: 500,
			ImageDetail:         "low",
		},
		Editor: EditorConfig{
			FadeDuration:    0.5,
			CaptionFontSize: 24,
			HashtagFontSize: 20,
		},
		YouTube: YouTubeConfig{
			RedirectURI: "http://localhost:9847/callback",
		},
		Events: EventsConfig{
			RingBufferSize: 1000,
			RetentionDays:  30,
			KafkaTopic:     "upclip.events",
		},
	}
}

// Load reads configuration from file and environment variables.
// Precedence is environment, then file, then Default.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Only variables that are present are applied, so file values survive.
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.Storage.BasePath == "" {
		return fmt.Errorf("STORAGE_PATH is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT %d out of range", c.Server.Port)
	}
	if c.Analyzer.BatchSize <= 0 {
		return fmt.Errorf("ANALYZER_BATCH_SIZE must be positive")
	}
	if c.Analyzer.BatchDelay < 0 {
		return fmt.Errorf("ANALYZER_BATCH_DELAY must not be negative")
	}
	if c.Analyzer.SceneThreshold <= 0 || c.Analyzer.SceneThreshold >= 1 {
		return fmt.Errorf("ANALYZER_SCENE_THRESHOLD must be between 0 and 1")
	}
	if c.Analyzer.MaxFrames <= 0 {
		return fmt.Errorf("ANALYZER_MAX_FRAMES must be positive")
	}
	switch c.LLM.ImageDetail {
	case "low", "high", "auto":
	default:
		return fmt.Errorf("OPENAI_IMAGE_DETAIL must be low, high or auto")
	}
	if (c.YouTube.ClientID == "") != (c.YouTube.ClientSecret == "") {
		return fmt.Errorf("YOUTUBE_CLIENT_ID and YOUTUBE_CLIENT_SECRET must be set together")
	}
	if len(c.Events.KafkaBrokers) > 0 && c.Events.KafkaTopic == "" {
		return fmt.Errorf("EVENTS_KAFKA_TOPIC is required when brokers are set")
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
