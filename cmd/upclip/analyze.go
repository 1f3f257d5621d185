package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <video>",
		Short: "Print the viral moments of a video as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPipeline(cmd)
			if err != nil {
				return err
			}
			video, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}

			moments, err := p.analyzer.Analyze(cmd.Context(), video)
			if err != nil {
				return fmt.Errorf("analyze: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), moments)
		},
	}
}

func newSuggestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <video> <timestamp>",
		Short: "Print editing suggestions for the frame at timestamp",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPipeline(cmd)
			if err != nil {
				return err
			}
			video, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}

			tips, err := p.analyzer.GenerateShortContent(cmd.Context(), video, args[1])
			if err != nil {
				return fmt.Errorf("suggest: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tips)
			return nil
		},
	}
}
