package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/designops/ralph/internal/server"
)

// serveCmd runs the HTTP status server
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP status server",
	Long: `Serve pipeline status over HTTP: /health, /api/v1/pipeline,
/api/v1/gates, and Prometheus metrics on /metrics.

Examples:
  ralph serve
  RALPH_SERVER_PORT=8080 ralph serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigNoValidator()
	if err != nil {
		return err
	}
	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	graph, err := buildGraph(cfg)
	if err != nil {
		return err
	}
	recorder := buildRecorder(cfg, logger)

	srv, err := server.NewServer(graph, recorder, nil, logger, &server.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown error", zap.Error(err))
		}
	}
	return nil
}
