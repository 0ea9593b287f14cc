package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/qwant1k/rag/internal/adapters/driving/httpapi"
	"github.com/qwant1k/rag/internal/logger"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat API server",
	Long: `Starts the HTTP API server and, unless disabled in configuration,
the filesystem watcher that keeps the index in sync with the
documents directory.

The index is reconciled with the directory once at startup, then
incrementally as files change.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()

	counts, err := app.ingestor.IngestAll(ctx)
	if err != nil {
		return err
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	logger.Info("Startup sync complete: %d documents, %d chunks", len(counts), total)

	if app.cfg.Watcher.Enabled {
		if err := app.watcher.Start(); err != nil {
			return err
		}
		defer func() {
			if err := app.watcher.Stop(); err != nil {
				logger.Warn("Stopping watcher: %v", err)
			}
		}()
	}

	addr := app.cfg.Server.ListenAddr
	if serveAddr != "" {
		addr = serveAddr
	}
	server := httpapi.New(addr, app.ingestor, app.chat, app.cfg.Documents.Dir)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening on %s", addr)
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-sigCh:
		logger.Info("Received %s, shutting down", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}
