// Package sqlitedb provides a thin handle over one SQLite database file.
//
// A Handle wraps a single connection and offers a small set of table
// helpers on top of raw SQL execution:
//
//   - ExecuteSQL, Query and ExecuteScript for arbitrary statements
//   - GetAllRows and GetSpecificRows for reads
//   - InsertRow, InsertRows, UpdateRows and DeleteRows for writes
//   - TableNames, HasTable and Columns for the schema catalog
//
// Table helpers check the table exists before building any statement, so
// a missing table is always reported as ErrTableDoesNotExist rather than a
// SQLite error. Filters and SET clauses are SQL fragments supplied by the
// caller; values are always bound through ? placeholders.
//
// Errors fall into four kinds, all wrapping Err:
//
//	ErrCannotAccess       the file could not be opened as a database
//	ErrTableDoesNotExist  a helper named an unknown table
//	ErrExecution          SQLite rejected a statement
//	ErrClosed             the handle was used after Close
//
// Usage:
//
//	h, err := sqlitedb.Open(ctx, sqlitedb.Options{Path: "./data/app.db"})
//	if err != nil {
//	    return err
//	}
//	defer h.Close()
//
//	rows, err := h.GetSpecificRows(ctx, "table_one", "something_null IS NULL")
package sqlitedb
