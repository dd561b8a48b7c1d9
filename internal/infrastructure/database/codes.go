package database

import (
	"errors"

	"github.com/mattn/go-sqlite3"
	"modernc.org/sqlite"
)

// primaryCodeMask strips the extended bits from a SQLite result code.
const primaryCodeMask = 0xff

// ResultCode extracts the primary SQLite result code from an error returned
// by either supported driver. ok is false when err carries no SQLite code
// (context cancellation, closed pool, scan errors).
func ResultCode(err error) (code int, ok bool) {
	var cgoErr sqlite3.Error
	if errors.As(err, &cgoErr) {
		return int(cgoErr.Code), true
	}

	var pureErr *sqlite.Error
	if errors.As(err, &pureErr) {
		return pureErr.Code() & primaryCodeMask, true
	}

	return 0, false
}

// CodeText returns SQLite's English description of a primary result code,
// e.g. "constraint failed" for SQLITE_CONSTRAINT.
func CodeText(code int) string {
	return sqlite3.ErrNo(code).Error()
}
