package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/gifcut/internal/httpapi"
	"github.com/forPelevin/gifcut/internal/pipeline"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			return serve(cmd.Context(), addr)
		},
	}
	cmd.Flags().String("addr", getenvDefault("GIFCUT_ADDR", ":8000"), "Listen address")
	return cmd
}

func serve(parent context.Context, addr string) error {
	logger := newLogger()

	cfg, err := configFromEnv()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := pipeline.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	router, err := httpapi.NewRouter(svc, httpapi.Options{MaxUploadBytes: cfg.MaxUploadBytes}, logger)
	if err != nil {
		return err
	}
	logger.Info().
		Str("fetcher", cfg.Fetcher).
		Int("max_segments", cfg.MaxSegments).
		Bool("archive", cfg.MinIO.Enabled()).
		Msg("gifcut ready")
	return httpapi.Serve(ctx, addr, router, 30*time.Second, logger)
}
