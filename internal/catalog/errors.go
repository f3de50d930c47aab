package catalog

// Error Codes Reference
//
// Errors that reach a client carry a code so that a reported failure can be
// matched to its cause in the logs.
//
// Row errors (ROW001-ROW099), raised while building an aggregate from a row:
//
//	ROW001 - Column count: the row does not have the expected number of columns
//	ROW002 - Invalid year: the publication year is missing or not an integer
//	ROW003 - Malformed row: the row could not be parsed
//
// Database errors (DB001-DB099):
//
//	DB001 - Duplicate reptile: subspecies_1/subspecies_2 already exist
//	DB002 - Duplicate value: a unique value already exists
//	DB003 - Missing reference: a referenced record does not exist
//	DB004 - Connection refused
//	DB005 - Connection reset
//	DB006 - Timeout
//	DB007 - Database busy (deadlock or locked file)
//
// Encoding errors (ENC001-ENC099):
//
//	ENC001 - Encoding not detected
//
// API errors (API001-API099):
//
//	API001 - Reptile not found
//	API002 - Invalid credentials
//	API003 - Invalid request
//	API004 - Request cancelled
//	API005 - Request timeout
//
// ERR000 is the fallback when nothing matches. Check the logs for the
// technical error.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/reptiledb/internal/dump"
	"github.com/JonMunkholm/reptiledb/internal/reptile"
	"github.com/JonMunkholm/reptiledb/internal/store"
)

var (
	// ErrNotFound is returned when no reptile has the requested id.
	ErrNotFound = store.ErrNotFound

	// ErrUnauthorized is returned when credentials do not match the admin
	// account.
	ErrUnauthorized = errors.New("invalid credentials")
)

// ConflictError reports a write rejected by a uniqueness or referential
// constraint.
type ConflictError struct {
	Err error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %v", e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// InvalidError reports a row or request that cannot be turned into an
// aggregate.
type InvalidError struct {
	Err error
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid: %v", e.Err)
}

func (e *InvalidError) Unwrap() error { return e.Err }

// classify wraps storage and factory errors into the catalog's error types.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var (
		fe *dump.FormatError
		ve *reptile.ValueError
	)
	switch {
	case store.IsConstraint(err):
		return &ConflictError{Err: err}
	case errors.As(err, &fe), errors.As(err, &ve), store.IsInvalidData(err):
		return &InvalidError{Err: err}
	default:
		return err
	}
}

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgNotFound = UserMessage{
		Message: "Reptile not found",
		Action:  "Check the id or search for the reptile first",
		Code:    "API001",
	}
	msgUnauthorized = UserMessage{
		Message: "Invalid credentials",
		Action:  "Check the admin username and password",
		Code:    "API002",
	}
	msgCancelled = UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "API004",
	}
	msgTimeout = UserMessage{
		Message: "Request timed out",
		Action:  "Narrow the search or try again later",
		Code:    "API005",
	}
	msgEncoding = UserMessage{
		Message: "Dump encoding could not be detected",
		Action:  "Convert the file to UTF-8 or UTF-16 and load it again",
		Code:    "ENC001",
	}
)

// errorPatterns maps technical error text (case-insensitive) to user
// messages. The first match wins, so specific patterns come first.
var errorPatterns = []errorPattern{
	// Row errors
	{
		pattern: "column count mismatch",
		msg: UserMessage{
			Message: "Row has the wrong number of columns",
			Action:  "Send exactly one value per dump column, tab separated",
			Code:    "ROW001",
		},
	},
	{
		pattern: "year is not an integer",
		msg: UserMessage{
			Message: "Publication year is not an integer",
			Action:  "Use a plain number such as 1990",
			Code:    "ROW002",
		},
	},
	{
		pattern: "year is out of range",
		msg: UserMessage{
			Message: "Publication year is out of range",
			Action:  "Use a four-digit year such as 1990",
			Code:    "ROW002",
		},
	},
	{
		pattern: "missing year",
		msg: UserMessage{
			Message: "Publication year is missing",
			Action:  "Fill in the subspecies_year column",
			Code:    "ROW002",
		},
	},

	// Database constraint errors
	{
		pattern: "reptile_subspecies_key",
		msg: UserMessage{
			Message: "A reptile with these subspecies names already exists",
			Action:  "Update the existing reptile instead",
			Code:    "DB001",
		},
	},
	{
		pattern: "reptile.subspecies_1",
		msg: UserMessage{
			Message: "A reptile with these subspecies names already exists",
			Action:  "Update the existing reptile instead",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check for duplicate entries",
			Code:    "DB002",
		},
	},
	{
		pattern: "foreign key constraint",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Load the bibliography before the reptiles that cite it",
			Code:    "DB003",
		},
	},

	// Database connection errors
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},
	{
		pattern: "database is locked",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Wait for the running load to finish and try again",
			Code:    "DB007",
		},
	},
}

// msgMalformed is used for format problems that match no specific pattern.
var msgMalformed = UserMessage{
	Message: "Row could not be parsed",
	Action:  "Check the row against the dump column layout",
	Code:    "ROW003",
}

// msgInvalidRequest is used for invalid errors that match no pattern.
var msgInvalidRequest = UserMessage{
	Message: "Invalid request",
	Action:  "Check the request body",
	Code:    "API003",
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. Known
// error types are matched first, then the error text is searched for known
// patterns. If nothing matches, the ERR000 fallback is returned.
//
//	msg := MapError(&ConflictError{Err: dupErr})
//	// msg.Code == "DB001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		return msgNotFound
	case errors.Is(err, ErrUnauthorized), errors.Is(err, reptile.ErrEmptyCredentials):
		return msgUnauthorized
	case errors.Is(err, dump.ErrEncodingUndetected):
		return msgEncoding
	case errors.Is(err, context.Canceled):
		return msgCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return msgTimeout
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	var (
		fe *dump.FormatError
		ie *InvalidError
	)
	switch {
	case errors.As(err, &fe):
		return msgMalformed
	case errors.As(err, &ie):
		return msgInvalidRequest
	}
	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
