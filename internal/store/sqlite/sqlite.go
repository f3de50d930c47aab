// Package sqlite implements store.Store on an embedded, pure-Go SQLite
// database. It backs local loads and the tests of the packages above it.
package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/JonMunkholm/reptiledb/internal/store"
)

//go:embed schema.sql
var schemaSQL string

// foldFunction lowercases its argument with full Unicode case mapping.
// SQLite's built-in lower() only folds ASCII.
const foldFunction = "fold_lower"

var stmts = store.NewStatements(store.Question, foldFunction)

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(foldFunction, 1, foldLower)
}

func foldLower(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// Store is a SQLite-backed store.Store.
type Store struct {
	db *sql.DB
}

// DSN builds a connection string for path with foreign keys enforced.
func DSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Open opens (creating if needed) the database at path and applies the
// schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", DSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single connection keeps the pragmas and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Begin implements store.Store.
func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Ping implements store.Store.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements store.Store.
func (s *Store) Close() error {
	return s.db.Close()
}

// classify wraps err with op, turning constraint failures into
// *store.ConstraintError, rejected values into *store.DataError and empty
// results into store.ErrNotFound.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}

	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_CONSTRAINT:
			return &store.ConstraintError{Err: fmt.Errorf("%s: %w", op, err)}
		case sqlite3.SQLITE_MISMATCH, sqlite3.SQLITE_TOOBIG, sqlite3.SQLITE_RANGE:
			return &store.DataError{Code: fmt.Sprint(se.Code()), Err: fmt.Errorf("%s: %w", op, err)}
		}
	}
	if strings.Contains(err.Error(), "constraint failed") {
		return &store.ConstraintError{Err: fmt.Errorf("%s: %w", op, err)}
	}

	return fmt.Errorf("%s: %w", op, err)
}
