package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/reptiledb/internal/dump"
	"github.com/JonMunkholm/reptiledb/internal/logging"
	"github.com/JonMunkholm/reptiledb/internal/metrics"
	"github.com/JonMunkholm/reptiledb/internal/reptile"
	"github.com/JonMunkholm/reptiledb/internal/store"
)

// ContextCheckInterval is how often (in rows) to check for cancellation.
var ContextCheckInterval = 100

// DefaultProgressEvery is used when no progress interval is configured.
const DefaultProgressEvery = 1000

// DefaultAdminUsername is seeded when no admin username is configured.
const DefaultAdminUsername = "admin"

// Options configures a Loader.
type Options struct {
	AdminUsername   string
	AdminPassword   string // Empty generates a random password on first seed
	ProgressEvery   int    // Rows between progress reports
	RowLimit        int    // Stop after this many rows; 0 loads everything
	BiblioCacheSize int
	Progress        ProgressFunc
	Metrics         *metrics.LoaderMetrics
}

// Loader runs dump loads against a store.
type Loader struct {
	store store.Store
	opts  Options
}

// New creates a Loader.
func New(s store.Store, opts Options) *Loader {
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = DefaultProgressEvery
	}
	if opts.AdminUsername == "" {
		opts.AdminUsername = DefaultAdminUsername
	}
	return &Loader{store: s, opts: opts}
}

// ingester is the per-dump part of a load.
type ingester interface {
	schema() *dump.Schema
	begin(ctx context.Context, tx store.Tx, res *Result) error
	ingest(ctx context.Context, tx store.Tx, row dump.Row, res *Result) error
	// keep and discard are called after a row's savepoint is released or
	// rolled back.
	keep(res *Result)
	discard()
}

// clearer is implemented by ingesters that replace the whole set.
type clearer interface {
	clear(ctx context.Context, tx store.Tx, res *Result) error
}

// seeder is implemented by ingesters that seed rows after ingestion.
type seeder interface {
	seed(ctx context.Context, tx store.Tx, res *Result) error
}

// Load reads the reptile dump at path and replaces the reptile set with it.
func (l *Loader) Load(ctx context.Context, path string) (*Result, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return l.readFailure(ctx, dump.ReptileSchema, path, err)
	}
	return l.LoadBytes(ctx, filepath.Base(path), raw)
}

// LoadBytes loads an in-memory reptile dump. name labels the result and the
// logs.
func (l *Loader) LoadBytes(ctx context.Context, name string, raw []byte) (*Result, error) {
	return l.run(ctx, name, raw, &reptileIngester{l: l})
}

func (l *Loader) readFailure(ctx context.Context, s *dump.Schema, path string, err error) (*Result, error) {
	r := l.newRun(ctx, s, filepath.Base(path))
	return r.fail(PhaseStarting, fmt.Errorf("read %s: %w", path, err))
}

// run drives one load: Start, Clear, Ingest, Seed, then Commit or Abort.
func (l *Loader) run(ctx context.Context, name string, raw []byte, ing ingester) (*Result, error) {
	r := l.newRun(ctx, ing.schema(), name)
	r.notify(PhaseStarting)
	r.log.Info("load started", "bytes", len(raw))

	decoded, err := dump.Resolve(raw)
	if err != nil {
		return r.fail(PhaseStarting, err)
	}
	r.res.Encoding = decoded.Encoding
	r.res.Confidence = decoded.Confidence
	r.log.Info("encoding detected", "encoding", decoded.Encoding, "confidence", decoded.Confidence)

	records := dump.Split(decoded.Text)
	if l.opts.RowLimit > 0 && len(records) > l.opts.RowLimit {
		r.log.Info("row limit applied", "limit", l.opts.RowLimit, "rows", len(records))
		records = records[:l.opts.RowLimit]
	}
	r.res.TotalRows = len(records)
	r.progress.TotalRows = len(records)

	tx, err := l.store.Begin(ctx)
	if err != nil {
		return r.fail(PhaseStarting, err)
	}
	defer tx.Rollback(ctx)

	if err := ing.begin(ctx, tx, r.res); err != nil {
		return r.fail(PhaseStarting, err)
	}

	if c, ok := ing.(clearer); ok {
		r.notify(PhaseClearing)
		if err := c.clear(ctx, tx, r.res); err != nil {
			return r.fail(PhaseClearing, err)
		}
		r.log.Info("reptile set cleared", "deleted", r.res.Cleared)
	}

	r.notify(PhaseIngesting)
	for i, rec := range records {
		if i%ContextCheckInterval == 0 && ctx.Err() != nil {
			return r.fail(PhaseIngesting, ctx.Err())
		}

		r.progress.CurrentRow = i + 1
		if err := l.ingestRecord(ctx, tx, ing, rec, i, r.res); err != nil {
			var rowErr *RowError
			if !errors.As(err, &rowErr) {
				return r.fail(PhaseIngesting, err)
			}
			r.skip(rec, rowErr)
		} else {
			r.res.Loaded++
			l.opts.Metrics.RecordRow(ing.schema().Name, metrics.OutcomeLoaded)
		}

		if (i+1)%l.opts.ProgressEvery == 0 {
			r.log.Debug("load progress", "row", i+1, "total", len(records), "loaded", r.res.Loaded, "skipped", r.res.Skipped)
			r.notify(PhaseIngesting)
		}
	}

	if s, ok := ing.(seeder); ok {
		r.notify(PhaseSeeding)
		if err := s.seed(ctx, tx, r.res); err != nil {
			return r.fail(PhaseSeeding, err)
		}
	}

	r.notify(PhaseCommitting)
	if err := tx.Commit(ctx); err != nil {
		return r.fail(PhaseCommitting, err)
	}

	return r.complete(), nil
}

// ingestRecord processes one record inside its own savepoint. A returned
// *RowError means the row was rolled back and the load can continue.
func (l *Loader) ingestRecord(ctx context.Context, tx store.Tx, ing ingester, rec dump.Record, i int, res *Result) error {
	row, err := ing.schema().Row(rec)
	if err != nil {
		return &RowError{Line: rec.Line, Err: err}
	}

	savepoint := fmt.Sprintf("sp_%d", i)
	if err := tx.Savepoint(ctx, savepoint); err != nil {
		return fmt.Errorf("create savepoint: %w", err)
	}

	if err := ing.ingest(ctx, tx, row, res); err != nil {
		ing.discard()
		if rbErr := tx.RollbackTo(ctx, savepoint); rbErr != nil {
			return fmt.Errorf("rollback to savepoint: %w", rbErr)
		}
		if err := tx.Release(ctx, savepoint); err != nil {
			return fmt.Errorf("release savepoint: %w", err)
		}
		if rowLevel(err) {
			return &RowError{Line: rec.Line, Err: err}
		}
		return err
	}

	if err := tx.Release(ctx, savepoint); err != nil {
		ing.discard()
		return fmt.Errorf("release savepoint: %w", err)
	}
	ing.keep(res)
	return nil
}

// loadRun carries the bookkeeping of one load.
type loadRun struct {
	l        *Loader
	log      *slog.Logger
	start    time.Time
	res      *Result
	progress Progress
}

func (l *Loader) newRun(ctx context.Context, s *dump.Schema, name string) *loadRun {
	runID := uuid.NewString()
	return &loadRun{
		l:     l,
		log:   logging.WithFields(ctx, "run_id", runID, "dump", s.Name, "file", name),
		start: time.Now(),
		res:   &Result{RunID: runID, Dump: s.Name, File: name},
		progress: Progress{
			RunID: runID,
			Dump:  s.Name,
			File:  name,
		},
	}
}

func (r *loadRun) notify(phase Phase) {
	if r.progress.Phase != phase {
		r.log.Info("load phase", "phase", phase)
	}
	r.progress.Phase = phase
	r.progress.Loaded = r.res.Loaded
	r.progress.Skipped = r.res.Skipped
	if r.l.opts.Progress != nil {
		r.l.opts.Progress(r.progress)
	}
}

func (r *loadRun) skip(rec dump.Record, rowErr *RowError) {
	reason := Reason(rowErr.Err)
	r.log.Warn("row skipped", "line", rec.Line, "reason", reason, "error", rowErr.Err)

	r.res.Skipped++
	r.res.FailedRows = append(r.res.FailedRows, FailedRow{
		FileName:   r.res.File,
		LineNumber: rec.Line,
		Reason:     rowErr.Err.Error(),
		Data:       rec.Columns,
	})
	r.l.opts.Metrics.RecordRowFailure(r.res.Dump, reason)
}

// fail finishes a load that will not commit. The caller's deferred rollback
// discards the unit of work.
func (r *loadRun) fail(phase Phase, err error) (*Result, error) {
	fatal := &FatalError{Phase: phase, Err: err}
	status := metrics.StatusFailed
	final := PhaseFailed
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		status = metrics.StatusCancelled
		final = PhaseCancelled
	}

	r.res.Duration = time.Since(r.start)
	r.res.Error = fatal.Error()
	r.progress.Error = r.res.Error
	r.log.Error("load aborted", "phase", phase, "error", err, "rows_processed", r.progress.CurrentRow)
	r.notify(final)
	r.l.opts.Metrics.RecordLoad(r.res.Dump, status, r.res.Duration, 0)

	return r.res, fatal
}

func (r *loadRun) complete() *Result {
	r.res.Duration = time.Since(r.start)
	r.progress.CurrentRow = r.res.TotalRows
	r.notify(PhaseComplete)
	r.log.Info("load complete",
		"rows", r.res.TotalRows,
		"loaded", r.res.Loaded,
		"skipped", r.res.Skipped,
		"taxa_created", r.res.TaxaCreated,
		"biblio_links", r.res.BiblioLinks,
		"biblio_misses", r.res.BiblioMisses,
		"duration", r.res.Duration,
	)
	r.l.opts.Metrics.RecordLoad(r.res.Dump, metrics.StatusComplete, r.res.Duration, r.res.Loaded)
	return r.res
}

// reptileIngester loads the reptile dump.
type reptileIngester struct {
	l        *Loader
	resolver *Resolver

	// Counts for the row in flight, applied on keep.
	rowLinks  int
	rowMisses int
}

func (ri *reptileIngester) schema() *dump.Schema { return dump.ReptileSchema }

func (ri *reptileIngester) begin(ctx context.Context, tx store.Tx, res *Result) error {
	resolver, err := NewResolver(tx, ri.l.opts.BiblioCacheSize, logging.WithFields(ctx, "run_id", res.RunID))
	if err != nil {
		return err
	}
	ri.resolver = resolver
	return nil
}

func (ri *reptileIngester) clear(ctx context.Context, tx store.Tx, res *Result) error {
	n, err := tx.ClearReptiles(ctx)
	if err != nil {
		return err
	}
	res.Cleared = n
	return nil
}

func (ri *reptileIngester) ingest(ctx context.Context, tx store.Tx, row dump.Row, res *Result) error {
	rep, err := reptile.FromRow(row)
	if err != nil {
		return err
	}
	if err := ri.resolver.Resolve(ctx, rep); err != nil {
		return err
	}
	if err := tx.InsertReptile(ctx, rep); err != nil {
		return err
	}

	linked, missed, err := ri.resolver.LinkBibliography(ctx, rep)
	ri.rowLinks, ri.rowMisses = linked, missed
	return err
}

func (ri *reptileIngester) keep(res *Result) {
	created := ri.resolver.Keep()
	res.TaxaCreated += created
	res.BiblioLinks += ri.rowLinks
	res.BiblioMisses += ri.rowMisses
	ri.l.opts.Metrics.RecordTaxaCreated(created)
	ri.l.opts.Metrics.RecordReferenceMisses(ri.rowMisses)
	ri.rowLinks, ri.rowMisses = 0, 0
}

func (ri *reptileIngester) discard() {
	ri.resolver.Discard()
	ri.rowLinks, ri.rowMisses = 0, 0
}

// seed ensures the admin account exists. An existing account is never
// modified.
func (ri *reptileIngester) seed(ctx context.Context, tx store.Tx, res *Result) error {
	opts := ri.l.opts

	_, err := tx.FindAdmin(ctx, opts.AdminUsername)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	password := opts.AdminPassword
	generated := password == ""
	if generated {
		password = uuid.NewString()
	}

	u, err := reptile.NewAdminUser(opts.AdminUsername, password)
	if err != nil {
		return err
	}
	if err := tx.CreateAdmin(ctx, &u); err != nil {
		return err
	}

	res.AdminCreated = true
	if generated {
		res.GeneratedAdminPassword = password
	}
	logging.WithFields(ctx, "run_id", res.RunID).Info("admin account created", "username", u.Username, "generated_password", generated)
	return nil
}
