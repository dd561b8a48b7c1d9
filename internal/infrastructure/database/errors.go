package database

import "errors"

// Connection errors. Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotFound is returned when the database file does not exist.
	ErrNotFound = errors.New("database: file not found")

	// ErrNotAFile is returned when the path names a directory or device.
	ErrNotAFile = errors.New("database: not a regular file")

	// ErrInvalidDatabase is returned when the file cannot be opened as a SQLite database.
	ErrInvalidDatabase = errors.New("database: cannot open as sqlite database")

	// ErrUnknownDriver is returned when Config.Driver names no supported driver.
	ErrUnknownDriver = errors.New("database: unknown driver")
)
