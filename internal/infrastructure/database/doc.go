// Package database provides the SQLite connection layer used by the
// neosqlite handle.
//
// This package manages:
//   - Opening existing database files (Open never creates files)
//   - Creating new database files on request (Create)
//   - Driver selection: mattn/go-sqlite3 (cgo) or modernc.org/sqlite (pure Go)
//   - Pinning the pool to a single connection
//   - Extracting SQLite result codes from either driver's error type
//
// Security Considerations:
//   - Files created by Create are 0600, directories 0750
//   - Callers are expected to bind values as statement arguments
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: "data/app.db"})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
package database
