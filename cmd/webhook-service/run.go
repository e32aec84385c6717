package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/ticket-translator/internal/app"
	"github.com/ticket-translator/internal/config"
	"github.com/ticket-translator/internal/logging"
	"github.com/ticket-translator/internal/server"
)

func newRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the webhook HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runService(cmd.Context(), opts)
		},
	}
}

// runService loads configuration, wires the clients and serves until SIGINT or SIGTERM.
func runService(ctx context.Context, opts *options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := app.NewLogger(cfg, opts.debug)
	if err != nil {
		return err
	}
	defer logging.Flush(2 * time.Second)

	logger.Info("configuration loaded",
		slog.String("config_path", opts.configPath),
		slog.String("server_addr", cfg.Server.Address),
		slog.String("provider", cfg.Translator.Provider),
		slog.String("target_language", cfg.Translator.TargetLanguage),
		slog.String("source_field", cfg.DevOps.SourceField),
		slog.String("target_field", cfg.DevOps.TargetField),
	)

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialise service", slog.String("error", err.Error()))
		return err
	}
	defer svc.Close()

	if !opts.debug {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := server.New(cfg, svc.Handler, logger.With(slog.String("component", "http_server")))

	if err := srv.Run(ctx); err != nil {
		logger.Error("server terminated with error", slog.String("error", err.Error()))
		return err
	}
	logger.Info("webhook service stopped")
	return nil
}
