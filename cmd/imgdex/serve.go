package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	chiTransport "github.com/kailas-cloud/imgdex/internal/transport/chi"
	"github.com/kailas-cloud/imgdex/internal/version"
)

func NewServeCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  withApp(open, runServe),
	}

	cmd.Flags().IntP("port", "p", 0, "Listen port (default http.port)")
	return cmd
}

func runServe(cmd *cobra.Command, a *app, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		a.cfg.HTTP.Port = port
	}

	a.logger.Info("Starting imgdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", a.env),
		zap.Int("http_port", a.cfg.HTTP.Port),
		zap.String("index_backend", a.cfg.Index.Backend),
	)

	if a.cfg.Index.LoadOnStart {
		if err := a.loadIndex(ctx, true); err != nil {
			return err
		}
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", a.cfg.HTTP.Port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return serve(ctx, a, newHTTPServer(a), ln)
}

func newHTTPServer(a *app) *http.Server {
	cfg := a.cfg
	server := chiTransport.NewServer(a.index, a.health, chiTransport.Defaults{
		TopK:               cfg.Index.DefaultTopK,
		ScoreThreshold:     cfg.Index.ScoreThreshold(),
		EvaluateThresholds: cfg.Index.EvaluateThresholds,
		ImageDir:           cfg.Index.ImageDir,
	}, a.logger)

	return &http.Server{
		Handler:      chiTransport.NewRouter(server, cfg.Auth.APIKeys, a.logger),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}
}

// serve runs srv on ln until ctx is done, then shuts down gracefully.
func serve(ctx context.Context, a *app, srv *http.Server, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	a.logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(a.cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Error during shutdown", zap.Error(err))
		return fmt.Errorf("shutdown: %w", err)
	}

	a.logger.Info("Server stopped gracefully")
	return nil
}
