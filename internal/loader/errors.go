package loader

import (
	"errors"
	"fmt"

	"github.com/JonMunkholm/reptiledb/internal/dump"
	"github.com/JonMunkholm/reptiledb/internal/reptile"
	"github.com/JonMunkholm/reptiledb/internal/store"
)

// FatalError aborts a load. The unit of work is rolled back.
type FatalError struct {
	Phase Phase
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("load failed during %s: %v", e.Phase, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// RowError reports a single skipped row.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Row failure reasons, used as metric labels.
const (
	ReasonFormat     = "format"
	ReasonValue      = "value"
	ReasonConstraint = "constraint"
	ReasonData       = "data"
	ReasonOther      = "other"
)

// Reason classifies a row failure.
func Reason(err error) string {
	var (
		fe *dump.FormatError
		ve *reptile.ValueError
	)
	switch {
	case errors.As(err, &fe):
		return ReasonFormat
	case errors.As(err, &ve):
		return ReasonValue
	case errors.Is(err, store.ErrConstraint):
		return ReasonConstraint
	case errors.Is(err, store.ErrInvalidData):
		return ReasonData
	default:
		return ReasonOther
	}
}

// rowLevel reports whether err only invalidates the current row.
func rowLevel(err error) bool {
	return Reason(err) != ReasonOther
}
