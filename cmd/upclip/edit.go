package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iconidentify/upclip/internal/domain"
)

func newEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <video>",
		Short: "Cut one clip and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := editRequestFromFlags(cmd, args[0])
			if err != nil {
				return err
			}
			p, err := newPipeline(cmd)
			if err != nil {
				return err
			}

			result, err := p.editor.Edit(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("edit: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().String("start", "", "Clip start (seconds or HH:MM:SS.mmm)")
	cmd.Flags().String("duration", "", "Clip length (seconds or HH:MM:SS.mmm)")
	cmd.Flags().String("format", "mp4", "Output format: mp4, mov or gif")
	cmd.Flags().String("resolution", "", "Output size: 1080p, 720p or 480p")
	cmd.Flags().String("title", "", "Caption drawn at the bottom")
	cmd.Flags().String("hashtags", "", "Comma separated hashtags drawn at the top")
	cmd.Flags().Bool("caption", false, "Draw the title")
	cmd.Flags().Bool("tags", false, "Draw the hashtags")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("duration")
	return cmd
}

func editRequestFromFlags(cmd *cobra.Command, video string) (domain.EditRequest, error) {
	startFlag, _ := cmd.Flags().GetString("start")
	durationFlag, _ := cmd.Flags().GetString("duration")
	format, _ := cmd.Flags().GetString("format")
	resolution, _ := cmd.Flags().GetString("resolution")
	title, _ := cmd.Flags().GetString("title")
	hashtags, _ := cmd.Flags().GetString("hashtags")
	caption, _ := cmd.Flags().GetBool("caption")
	tags, _ := cmd.Flags().GetBool("tags")

	start, err := domain.ParseClock(startFlag)
	if err != nil {
		return domain.EditRequest{}, fmt.Errorf("--start: %w", err)
	}
	duration, err := domain.ParseClock(durationFlag)
	if err != nil {
		return domain.EditRequest{}, fmt.Errorf("--duration: %w", err)
	}
	abs, err := filepath.Abs(video)
	if err != nil {
		return domain.EditRequest{}, err
	}

	return domain.EditRequest{
		VideoPath:       abs,
		Moment:          domain.NewMoment(domain.NewTimeRange(start, start+duration), "", 0, title, splitHashtags(hashtags)),
		OutputFormat:    format,
		Resolution:      domain.Resolution(resolution),
		IncludeCaption:  caption,
		IncludeHashtags: tags,
	}, nil
}

func splitHashtags(s string) []string {
	var tags []string
	for _, tag := range strings.Split(s, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
