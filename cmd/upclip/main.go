// Command upclip runs the clip pipeline from the terminal, without the HTTP
// server: analyze a video for moments, ask for editing tips, or cut a clip.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/iconidentify/upclip/internal/config"
	"github.com/iconidentify/upclip/internal/domain"
	"github.com/iconidentify/upclip/internal/service"
	"github.com/iconidentify/upclip/pkg/ffmpeg"
	"github.com/iconidentify/upclip/pkg/llm"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	_ = godotenv.Load() // best-effort: load .env if present

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "upclip",
		Short:         "Find viral moments in a video and cut them into Shorts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)

	root.PersistentFlags().String("config", "", "Path to config file")
	root.PersistentFlags().Bool("debug", false, "Enable debug logging")

	root.AddCommand(
		newAnalyzeCmd(),
		newSuggestCmd(),
		newEditCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "upclip %s (built %s)\n", Version, BuildTime)
		},
	}
}

// pipeline holds the services a command needs. Events are only logged.
type pipeline struct {
	cfg      *config.Config
	analyzer *service.AnalyzerService
	editor   *service.EditorService
}

func newPipeline(cmd *cobra.Command) (*pipeline, error) {
	configPath, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")

	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	// stdout carries the JSON result
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	for _, dir := range []string{cfg.Storage.FramesDir(), cfg.Storage.EditedDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	processor := ffmpeg.NewVideoProcessor(cfg.FFmpeg.FFmpegPath, cfg.FFmpeg.FFprobePath, logger)
	if err := processor.IsAvailable(); err != nil {
		return nil, err
	}

	var events domain.EventEmitter = domain.NopEmitter{}
	return &pipeline{
		cfg:      cfg,
		analyzer: service.NewAnalyzerService(processor, processor, llm.NewClient(cfg.LLM), cfg.Storage, cfg.Analyzer, events, logger),
		editor:   service.NewEditorService(processor, processor, cfg.Storage, cfg.Editor, events, logger),
	}, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
