package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/reptiledb/internal/loader"
	"github.com/JonMunkholm/reptiledb/internal/metrics"
)

const metricsExportTimeout = 10 * time.Second

var (
	flagLoadFile   string
	flagLoadLimit  int
	flagBiblioFile string
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Replace the reptile set with the contents of a reptile dump",
	Long: `Load clears every reptile and loads the reptile dump in a single
transaction. Taxa are created as needed, bibliography references are linked
to entries already loaded with load-biblio, and rows that cannot be parsed
or stored are skipped and reported. The admin account is seeded if missing.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		file := flagLoadFile
		if file == "" {
			file = cfg.Loader.ReptileFile
		}
		limit := cfg.Loader.RowLimit
		if cmd.Flags().Changed("limit") {
			limit = flagLoadLimit
		}

		return runLoad(cmd.Context(), cmd.OutOrStdout(), func(l *loader.Loader, ctx context.Context) (*loader.Result, error) {
			return l.Load(ctx, file)
		}, limit)
	},
}

var loadBiblioCmd = &cobra.Command{
	Use:   "load-biblio",
	Short: "Insert or update bibliography entries from a bibliography dump",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		file := flagBiblioFile
		if file == "" {
			file = cfg.Loader.BiblioFile
		}
		return runLoad(cmd.Context(), cmd.OutOrStdout(), func(l *loader.Loader, ctx context.Context) (*loader.Result, error) {
			return l.LoadBibliography(ctx, file)
		}, cfg.Loader.RowLimit)
	},
}

func init() {
	loadCmd.Flags().StringVar(&flagLoadFile, "file", "", "reptile dump to load (default: LOADER_REPTILE_FILE)")
	loadCmd.Flags().IntVar(&flagLoadLimit, "limit", 0, "load at most this many rows; 0 loads everything")
	loadBiblioCmd.Flags().StringVar(&flagBiblioFile, "file", "", "bibliography dump to load (default: LOADER_BIBLIO_FILE)")
}

// runLoad opens the store, runs one load, prints its result and exports the
// loader metrics. SIGINT and SIGTERM cancel the load, which rolls it back.
func runLoad(parent context.Context, out io.Writer, load func(*loader.Loader, context.Context) (*loader.Result, error), limit int) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	m, err := metrics.New()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	l := loader.New(s, loader.Options{
		AdminUsername:   cfg.Admin.Username,
		AdminPassword:   cfg.Admin.Password,
		ProgressEvery:   cfg.Loader.ProgressEvery,
		RowLimit:        limit,
		BiblioCacheSize: cfg.Loader.BiblioCacheSize,
		Metrics:         m.Loader,
		Progress:        logProgress,
	})

	res, err := load(l, ctx)
	if res != nil {
		printResult(out, res)
	}
	exportMetrics(m)
	return err
}

// exportMetrics publishes the loader metrics of a finished run. The load has
// already committed or rolled back, so a failed export is only logged.
func exportMetrics(m *metrics.Metrics) {
	target := metrics.ExportTarget{
		TextfilePath: cfg.Metrics.TextfilePath,
		PushURL:      cfg.Metrics.PushURL,
		PushJob:      cfg.Metrics.PushJob,
	}
	if !target.Enabled() {
		return
	}

	// Cancelling the load must not cancel the export of its outcome.
	ctx, cancel := context.WithTimeout(context.Background(), metricsExportTimeout)
	defer cancel()

	if err := m.Export(ctx, target); err != nil {
		slog.Warn("export loader metrics", "error", err)
		return
	}
	slog.Info("loader metrics exported", "textfile", target.TextfilePath, "pushgateway", target.PushURL)
}

func logProgress(p loader.Progress) {
	slog.Info("load progress",
		"run_id", p.RunID,
		"dump", p.Dump,
		"phase", p.Phase,
		"row", p.CurrentRow,
		"total", p.TotalRows,
		"percent", p.Percent(),
		"loaded", p.Loaded,
		"skipped", p.Skipped,
	)
}

// printResult writes a summary of res. A generated admin password is shown
// here once and nowhere else.
func printResult(w io.Writer, res *loader.Result) {
	fmt.Fprintf(w, "%s: %s\n", res.Dump, res.File)
	if res.Encoding != "" {
		fmt.Fprintf(w, "  encoding:      %s (confidence %d)\n", res.Encoding, res.Confidence)
	}
	fmt.Fprintf(w, "  rows:          %d\n", res.TotalRows)
	fmt.Fprintf(w, "  loaded:        %d\n", res.Loaded)
	fmt.Fprintf(w, "  skipped:       %d\n", res.Skipped)
	for _, f := range res.FailedRows {
		fmt.Fprintf(w, "    line %d: %s\n", f.LineNumber, f.Reason)
	}
	if res.Cleared > 0 {
		fmt.Fprintf(w, "  cleared:       %d\n", res.Cleared)
	}
	if res.TaxaCreated > 0 || res.BiblioLinks > 0 || res.BiblioMisses > 0 {
		fmt.Fprintf(w, "  taxa created:  %d\n", res.TaxaCreated)
		fmt.Fprintf(w, "  biblio links:  %d (%d unknown ids)\n", res.BiblioLinks, res.BiblioMisses)
	}
	if res.AdminCreated {
		fmt.Fprintln(w, "  admin account: created")
		if res.GeneratedAdminPassword != "" {
			fmt.Fprintf(w, "  admin password: %s\n", res.GeneratedAdminPassword)
		}
	}
	fmt.Fprintf(w, "  duration:      %s\n", res.Duration.Round(1e6))
	if res.Error != "" {
		fmt.Fprintf(w, "  error:         %s\n", res.Error)
	}
}
