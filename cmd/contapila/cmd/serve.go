package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lucasew/contapila/pkg/api"
	"github.com/lucasew/contapila/pkg/worker"
)

var serveAddr string

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the parser over HTTP",
	Long: `Serve the parser over HTTP.

Endpoints:
- GET  /healthz             liveness probe
- POST /api/parse           parse one file
- POST /api/parse-multiple  parse a batch, streaming progress as NDJSON

Example:
  contapila serve --addr :8080`,
	Run: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from LEDGER_ADDR)")
}

func runServe(cmd *cobra.Command, args []string) {
	cfg, resolver := loadEnvironment()
	parserCfg := parserConfig(resolver)

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	w := worker.New(parserCfg, worker.WithConcurrency(cfg.Workers), worker.WithLogger(logger))

	server := &http.Server{
		Addr:              addr,
		Handler:           api.NewRouter(api.NewParseHandler(w, logger)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", addr)
		// ListenAndServe returns ErrServerClosed on graceful shutdown.
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		exitOnError(err, "server failed")
		return
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("Shutting down server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		exitOnError(fmt.Errorf("shutdown: %w", err), "server shutdown failed")
	}
	logger.Debug("Server shut down gracefully")
}
