// Package loader runs full loads of the reptile and bibliography dumps into
// a store.
//
// A reptile load is one unit of work: the reptile set is cleared, every row
// is ingested inside its own savepoint, the admin account is seeded and the
// whole batch commits at once. Rows that fail to tokenize, coerce or satisfy
// a constraint are skipped and reported; any other storage failure aborts the
// load and rolls everything back.
package loader

import (
	"time"
)

// Phase indicates the current stage of a load.
type Phase string

const (
	PhaseStarting   Phase = "starting"
	PhaseClearing   Phase = "clearing"
	PhaseIngesting  Phase = "ingesting"
	PhaseSeeding    Phase = "seeding"
	PhaseCommitting Phase = "committing"
	PhaseComplete   Phase = "complete"
	PhaseFailed     Phase = "failed"
	PhaseCancelled  Phase = "cancelled"
)

// Progress represents the current state of a load.
type Progress struct {
	RunID      string
	Dump       string // Schema name: reptiles or bibliography
	File       string
	Phase      Phase
	TotalRows  int
	CurrentRow int
	Loaded     int
	Skipped    int
	Error      string // Non-empty if Phase is PhaseFailed
}

// Percent returns the progress as a percentage (0-100).
func (p Progress) Percent() int {
	if p.TotalRows > 0 {
		return (p.CurrentRow * 100) / p.TotalRows
	}
	return 0
}

// ProgressFunc is called on every phase change and periodically while rows
// are ingested.
type ProgressFunc func(Progress)

// FailedRow contains information about a row that was skipped.
type FailedRow struct {
	FileName   string
	LineNumber int
	Reason     string
	Data       []string
}

// Result contains the outcome of a load. It is returned even when the load
// fails; nothing it counts was committed in that case.
type Result struct {
	RunID        string
	Dump         string
	File         string
	Encoding     string
	Confidence   int
	TotalRows    int
	Loaded       int
	Skipped      int
	FailedRows   []FailedRow
	TaxaCreated  int
	BiblioLinks  int
	BiblioMisses int
	Cleared      int64

	AdminCreated bool
	// GeneratedAdminPassword is set only when the admin account was created
	// without a configured password. It is never logged.
	GeneratedAdminPassword string

	Duration time.Duration
	Error    string // Non-empty if the load failed
}
