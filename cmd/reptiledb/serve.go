package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/reptiledb/internal/catalog"
	"github.com/JonMunkholm/reptiledb/internal/metrics"
	"github.com/JonMunkholm/reptiledb/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the reptile catalog over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		s, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer s.Close()
		slog.Info("connected to database", "driver", cfg.Database.Driver)

		m, err := metrics.New()
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}

		server := web.NewServer(catalog.New(s), cfg, m)

		// Graceful shutdown
		done := make(chan struct{})
		go func() {
			defer close(done)
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh

			slog.Info("shutting down...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				slog.Error("shutdown error", "error", err)
			}
		}()

		slog.Info("server starting", "addr", cfg.Server.Addr())
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		<-done
		slog.Info("server stopped")
		return nil
	},
}
