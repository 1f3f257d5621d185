package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/iconidentify/upclip/internal/api"
	"github.com/iconidentify/upclip/internal/api/handler"
	"github.com/iconidentify/upclip/internal/config"
	"github.com/iconidentify/upclip/internal/domain"
	"github.com/iconidentify/upclip/internal/service"
	"github.com/iconidentify/upclip/pkg/ffmpeg"
	"github.com/iconidentify/upclip/pkg/llm"
	"github.com/iconidentify/upclip/pkg/youtube"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *showVersion {
		fmt.Printf("upclip %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	_ = godotenv.Load() // best-effort: load .env if present

	// Setup logger
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting upclip",
		"version", Version,
		"build_time", BuildTime,
	)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Ensure storage directories exist
	for _, dir := range []string{cfg.Storage.VideosDir(), cfg.Storage.FramesDir(), cfg.Storage.EditedDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Error("failed to create storage directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	// Initialize dependencies
	processor := ffmpeg.NewVideoProcessor(cfg.FFmpeg.FFmpegPath, cfg.FFmpeg.FFprobePath, logger)
	if err := processor.IsAvailable(); err != nil {
		// /ready reports this too
		logger.Warn("ffmpeg not available", "error", err)
	} else if version, err := processor.GetVersion(context.Background()); err == nil {
		logger.Info("ffmpeg found", "version", version)
	}

	model := llm.NewClient(cfg.LLM)

	var sinks []service.EventSink
	if len(cfg.Events.KafkaBrokers) > 0 {
		sinks = append(sinks, service.NewKafkaSink(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic, logger))
		logger.Info("kafka event sink enabled", "brokers", cfg.Events.KafkaBrokers, "topic", cfg.Events.KafkaTopic)
	}
	events, err := service.NewEventService(service.EventServiceConfigFrom(cfg.Events), logger, sinks...)
	if err != nil {
		logger.Error("failed to initialize event service", "error", err)
		os.Exit(1)
	}

	tokens := youtube.NewTokenStore(cfg.YouTube.TokenStorePath, cfg.YouTube.TokenPassphrase, logger)
	if err := tokens.Load(); err != nil {
		logger.Warn("failed to load stored youtube token", "path", cfg.YouTube.TokenStorePath, "error", err)
	}

	var (
		auth     service.Authenticator
		uploader service.VideoUploader
	)
	if cfg.YouTube.Enabled() {
		oauth := youtube.NewOAuth(cfg.YouTube)
		auth = oauth
		uploader = youtube.NewUploader(oauth)
	} else {
		logger.Info("youtube publishing disabled: no client credentials configured")
	}

	// Initialize services
	uploadSvc := service.NewUploadService(cfg.Storage, events, logger)
	analyzerSvc := service.NewAnalyzerService(processor, processor, model, cfg.Storage, cfg.Analyzer, events, logger)
	editorSvc := service.NewEditorService(processor, processor, cfg.Storage, cfg.Editor, events, logger)
	publishSvc := service.NewPublishService(auth, uploader, tokens, events, logger)

	// Initialize handlers
	handlers := api.Handlers{
		Upload:   handler.NewUploadHandler(uploadSvc, cfg.Storage.MaxFileSize, logger),
		Analyzer: handler.NewAnalyzerHandler(analyzerSvc, cfg.Storage.BasePath, logger),
		Editor:   handler.NewEditorHandler(editorSvc, cfg.Storage.BasePath, logger),
		YouTube:  handler.NewYouTubeHandler(publishSvc, cfg.Storage.BasePath, logger),
		Media:    handler.NewMediaHandler(cfg.Storage.BasePath),
		Events:   handler.NewEventHandler(events, logger),
		Health:   handler.NewHealthHandler(cfg.FFmpeg, cfg.Storage.BasePath, events, publishSvc),
		UI:       handler.NewUIHandler(),
	}

	// Setup router
	router := api.NewRouter(handlers, api.RouterConfig{
		APIKey:         cfg.Server.APIKey,
		CORSOrigin:     cfg.Server.CORSOrigin,
		RequestTimeout: cfg.Server.RequestTimeout,
	})

	// Prune persisted events once a day
	cleanupCtx, cancelCleanup := context.WithCancel(context.Background())
	go runEventCleanup(cleanupCtx, events, 24*time.Hour, logger)

	events.EmitInfo(domain.EventCategorySystem, "server", "Server started", nil)

	// Setup HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	// Cancel background tasks
	cancelCleanup()

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop accepting new requests
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// Flush sinks and close the event store
	if err := events.Close(); err != nil {
		logger.Error("event service shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}

func runEventCleanup(ctx context.Context, events *service.EventService, every time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		if err := events.CleanupOldEvents(ctx); err != nil {
			logger.Warn("event cleanup failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
