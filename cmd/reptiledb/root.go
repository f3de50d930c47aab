package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/reptiledb/internal/config"
	"github.com/JonMunkholm/reptiledb/internal/logging"
	"github.com/JonMunkholm/reptiledb/internal/store"
	"github.com/JonMunkholm/reptiledb/internal/store/postgres"
	"github.com/JonMunkholm/reptiledb/internal/store/sqlite"
)

// Global flag values.
var (
	flagEnvFile string
)

// cfg is loaded by PersistentPreRunE for every command that needs it.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "reptiledb",
	Short:         "Load and serve the reptile taxonomic database",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// patch-dump is a pure stdin/stdout filter.
		if cmd.Name() == patchDumpCmd.Name() {
			return nil
		}

		c, err := config.LoadFile(flagEnvFile)
		if err != nil {
			return err
		}
		cfg = c

		// Logs go to stderr so that command output on stdout stays clean.
		logging.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
		slog.Debug("configuration loaded", "config", cfg.String())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "environment file read before configuration is loaded")

	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(loadBiblioCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(patchDumpCmd)
}

// openStore opens the configured backend. Schemas are created if missing.
func openStore(ctx context.Context, c *config.Config) (store.Store, error) {
	switch c.Database.Driver {
	case config.DriverPostgres:
		s, err := postgres.Open(ctx, postgres.Config{
			URL:             c.Database.URL,
			MaxConns:        c.Database.MaxConns,
			MinConns:        c.Database.MinConns,
			MaxConnLifetime: c.Database.MaxConnLifetime,
			MaxConnIdleTime: c.Database.MaxConnIdleTime,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return s, nil
	case config.DriverSQLite:
		s, err := sqlite.Open(ctx, c.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", c.Database.URL, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
}
