package sqlitedb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nerrad567/neosqlite/internal/infrastructure/database"
)

// Err is the common base of every error returned by a Handle.
//
//	if errors.Is(err, sqlitedb.Err) {
//	    // any handle failure
//	}
var Err = errors.New("sqlitedb")

// Handle errors. Use errors.Is() to check for these errors in calling code.
// Driver error types are never reachable through errors.As.
var (
	// ErrCannotAccess is returned by Open when the path is not a readable SQLite database.
	ErrCannotAccess = fmt.Errorf("%w: cannot access database", Err)

	// ErrTableDoesNotExist is returned by row helpers when the named table is absent.
	// It is a precondition failure, checked before any statement runs.
	ErrTableDoesNotExist = fmt.Errorf("%w: table does not exist", Err)

	// ErrExecution is returned when SQLite rejects a statement.
	ErrExecution = fmt.Errorf("%w: execution failed", Err)

	// ErrClosed is returned by every operation after Close.
	ErrClosed = fmt.Errorf("%w: connection closed", Err)
)

// Kind returns a short machine-readable name for a handle error, or ""
// when err is nil. Used in change events and HTTP error codes.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCannotAccess):
		return "cannot_access"
	case errors.Is(err, ErrTableDoesNotExist):
		return "table_does_not_exist"
	case errors.Is(err, ErrClosed):
		return "closed"
	case errors.Is(err, ErrExecution):
		return "execution"
	default:
		return "unknown"
	}
}

// translate maps a driver-level failure onto ErrExecution. The driver error
// is flattened into the message so callers can read it but cannot match its
// type. Context cancellation stays matchable.
func translate(err error, action string) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %s: %w", ErrExecution, action, context.Canceled)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %s: %w", ErrExecution, action, context.DeadlineExceeded)
	}

	// modernc already leads its message with the code text; mattn does not.
	if code, ok := database.ResultCode(err); ok {
		if text := database.CodeText(code); !strings.Contains(err.Error(), text) {
			return fmt.Errorf("%w: %s: %s: %v", ErrExecution, action, text, err)
		}
	}
	return fmt.Errorf("%w: %s: %v", ErrExecution, action, err)
}
