package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/gifcut/internal/pipeline"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Render GIFs for one prompt and write them to disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return generate(cmd)
		},
	}
	cmd.Flags().String("prompt", "", "Words to look for in the video")
	cmd.Flags().String("url", "", "YouTube URL")
	cmd.Flags().String("file", "", "Local video file")
	cmd.Flags().String("out", "out", "Output directory")
	_ = cmd.MarkFlagRequired("prompt")
	cmd.MarkFlagsOneRequired("url", "file")
	return cmd
}

func generate(cmd *cobra.Command) error {
	prompt, _ := cmd.Flags().GetString("prompt")
	url, _ := cmd.Flags().GetString("url")
	file, _ := cmd.Flags().GetString("file")
	outDir, _ := cmd.Flags().GetString("out")

	logger := newLogger()
	cfg, err := configFromEnv()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Hour)
	defer cancel()

	svc, err := pipeline.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	req := pipeline.Request{Prompt: prompt, YouTubeURL: url}
	source := url
	if url == "" {
		absIn, err := filepath.Abs(file)
		if err != nil {
			return err
		}
		f, err := os.Open(absIn)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		req.Upload = f
		req.UploadName = absIn
		source = absIn
	}

	res, err := svc.Generate(ctx, req)
	if err != nil {
		return err
	}
	if len(res.Clips) == 0 {
		return errors.New("no segments found in the video")
	}
	runDir, err := pipeline.WriteRun(outDir, prompt, source, res, time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d gifs written to %s\n", len(res.Clips), runDir)
	return nil
}
