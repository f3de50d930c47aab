// Package store defines the unit of work through which the loader and the
// catalog persist reptiles, and the errors every backend reports.
//
// Two backends implement it: store/postgres (pgx) and store/sqlite (pure-Go
// SQLite). Both share the SQL in this package so that behaviour does not
// drift between them.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/reptiledb/internal/reptile"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")

	// ErrConstraint is matched by every *ConstraintError.
	ErrConstraint = errors.New("constraint violation")

	// ErrInvalidData is matched by every *DataError.
	ErrInvalidData = errors.New("invalid data")
)

// ConstraintError reports a uniqueness or referential constraint rejected by
// the database.
type ConstraintError struct {
	Constraint string // Constraint name when the driver reports one
	Err        error
}

func (e *ConstraintError) Error() string {
	if e.Constraint != "" {
		return fmt.Sprintf("constraint %s: %v", e.Constraint, e.Err)
	}
	return fmt.Sprintf("constraint violation: %v", e.Err)
}

func (e *ConstraintError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrConstraint) true for any constraint error.
func (e *ConstraintError) Is(target error) bool {
	return target == ErrConstraint
}

// DataError reports a value the database refused to store, such as a
// number out of range for its column or a byte the encoding cannot hold.
type DataError struct {
	Code string // SQLSTATE or driver code when one is reported
	Err  error
}

func (e *DataError) Error() string {
	return fmt.Sprintf("invalid data: %v", e.Err)
}

func (e *DataError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrInvalidData) true for any data error.
func (e *DataError) Is(target error) bool {
	return target == ErrInvalidData
}

// IsInvalidData reports whether err is a rejected value.
func IsInvalidData(err error) bool {
	return errors.Is(err, ErrInvalidData)
}

// IsConstraint reports whether err is a constraint violation.
func IsConstraint(err error) bool {
	return errors.Is(err, ErrConstraint)
}

// Store opens units of work against one database.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	Ping(ctx context.Context) error
	Close() error
}

// Stats counts the rows of the main tables.
type Stats struct {
	Reptiles    int64
	Taxa        int64
	Biblio      int64
	BiblioLinks int64
	Admins      int64
}

// Tx is a unit of work. Nothing written through it is visible to other
// readers until Commit. Rollback after Commit is a no-op, so callers may
// always defer it.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	// Savepoints scope the work of a single row.
	Savepoint(ctx context.Context, name string) error
	RollbackTo(ctx context.Context, name string) error
	Release(ctx context.Context, name string) error

	// ClearReptiles deletes every reptile with its children and links.
	// Taxa and bibliography rows are kept.
	ClearReptiles(ctx context.Context) (int64, error)

	FindTaxa(ctx context.Context, value string) (reptile.Taxa, error)
	CreateTaxa(ctx context.Context, value string) (reptile.Taxa, error)

	FindBiblio(ctx context.Context, id string) (reptile.Biblio, error)
	UpsertBiblio(ctx context.Context, b reptile.Biblio) error

	// InsertReptile stores the aggregate with all its children and sets
	// r.ID. Taxa, when set, must already be persisted.
	InsertReptile(ctx context.Context, r *reptile.Reptile) error
	// UpdateReptile rewrites the scalar columns and the taxa reference.
	UpdateReptile(ctx context.Context, r *reptile.Reptile) error
	// ReplaceChildren deletes one child collection and recreates it.
	ReplaceChildren(ctx context.Context, reptileID int64, kind reptile.ChildKind, children []reptile.Child) error
	// LinkBiblio records the association once and appends b to
	// r.Bibliography. Linking twice is not an error.
	LinkBiblio(ctx context.Context, r *reptile.Reptile, b reptile.Biblio) error
	DeleteReptile(ctx context.Context, id int64) error

	// GetReptile loads the aggregate with taxa, children and bibliography.
	GetReptile(ctx context.Context, id int64) (*reptile.Reptile, error)
	// SearchReptiles returns matching reptile ids in id order.
	SearchReptiles(ctx context.Context, q Query) ([]int64, error)

	FindAdmin(ctx context.Context, username string) (reptile.AdminUser, error)
	CreateAdmin(ctx context.Context, u *reptile.AdminUser) error

	Stats(ctx context.Context) (Stats, error)
}
