package sqlitedb

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/nerrad567/neosqlite/internal/events"
	"github.com/nerrad567/neosqlite/internal/infrastructure/database"
)

// Logger is the logging surface a Handle needs.
// *slog.Logger and *logging.Logger both satisfy it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Options configures Open.
type Options struct {
	// Name is a display label used in logs and events. Defaults to the file's base name.
	Name string

	// Path is the database file. It must already exist.
	Path string

	// Verbose raises per-operation log lines from debug to info.
	Verbose bool

	// Driver selects the SQLite driver (database.DriverCGO or database.DriverPureGo).
	Driver string

	// BusyTimeout is the lock wait in seconds.
	BusyTimeout int

	// ForeignKeys enables foreign key enforcement on the connection.
	ForeignKeys bool

	// Logger receives operation logs. Nil discards them.
	Logger Logger

	// Notifier receives an event after every mutating operation. Nil disables events.
	Notifier events.Notifier
}

// Row is one result row, values in column order. SQLite storage classes map
// to int64, float64, string, []byte and nil.
type Row []any

// Result reports the outcome of a statement that does not return rows.
type Result struct {
	RowsAffected int64 `json:"rows_affected"`
	LastInsertID int64 `json:"last_insert_id"`
}

// Handle is an open connection to one SQLite database file.
//
// A Handle is not safe for concurrent use. Callers sharing one across
// goroutines must serialise access themselves.
type Handle struct {
	name     string
	path     string
	verbose  bool
	db       *database.DB
	logger   Logger
	notifier events.Notifier
	open     bool
}

// Open connects to an existing database file. It never creates one: a
// missing path, a directory or a file that is not a SQLite database all
// fail with ErrCannotAccess.
func Open(ctx context.Context, opts Options) (*Handle, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	name := opts.Name
	if name == "" {
		name = baseName(opts.Path)
	}

	db, err := database.Open(ctx, database.Config{
		Path:        opts.Path,
		Driver:      opts.Driver,
		BusyTimeout: opts.BusyTimeout,
		ForeignKeys: opts.ForeignKeys,
	})
	if err != nil {
		logger.Warn("database open failed", "name", name, "path", opts.Path, "error", err)
		return nil, fmt.Errorf("%w: %s: %v", ErrCannotAccess, opts.Path, err)
	}

	h := &Handle{
		name:     name,
		path:     opts.Path,
		verbose:  opts.Verbose,
		db:       db,
		logger:   logger,
		notifier: opts.Notifier,
		open:     true,
	}
	h.trace("database opened", "driver", db.Driver())
	return h, nil
}

// Name returns the handle's display name.
func (h *Handle) Name() string {
	return h.name
}

// Path returns the database file path.
func (h *Handle) Path() string {
	return h.path
}

// IsOpen reports whether Close has not yet been called.
func (h *Handle) IsOpen() bool {
	return h.open
}

// Close releases the connection. Closing an already closed handle is a no-op.
func (h *Handle) Close() error {
	if !h.open {
		return nil
	}
	h.open = false

	if err := h.db.Close(); err != nil {
		h.logger.Warn("database close failed", "name", h.name, "error", err)
		return fmt.Errorf("%w: closing connection: %v", ErrExecution, err)
	}
	h.trace("database closed")
	return nil
}

// HealthCheck verifies the connection still answers queries.
func (h *Handle) HealthCheck(ctx context.Context) error {
	if err := h.checkOpen(); err != nil {
		return err
	}
	return translate(h.db.HealthCheck(ctx), "health check")
}

// Stats returns connection pool statistics.
func (h *Handle) Stats() sql.DBStats {
	return h.db.Stats()
}

// ExecuteSQL runs one statement that returns no rows and reports its effect.
// Use Query for statements that produce rows.
func (h *Handle) ExecuteSQL(ctx context.Context, query string, args ...any) (Result, error) {
	if err := h.checkOpen(); err != nil {
		return Result{}, err
	}

	start := time.Now()
	h.trace("executing sql", "sql", query)

	res, err := h.exec(ctx, query, args...)
	if err != nil {
		err = translate(err, "executing sql")
	}
	h.emit(events.OpExecute, "", res.RowsAffected, start, err)
	return res, err
}

// Query runs one statement and returns every row it produces.
func (h *Handle) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	if err := h.checkOpen(); err != nil {
		return nil, err
	}

	h.trace("running query", "sql", query)
	rows, err := h.query(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "running query")
	}
	return rows, nil
}

// ExecuteScript runs a multi-statement script inside one transaction.
// Either every statement applies or none do.
func (h *Handle) ExecuteScript(ctx context.Context, script string) error {
	if err := h.checkOpen(); err != nil {
		return err
	}

	start := time.Now()
	h.trace("executing script", "bytes", len(script))

	rows, err := h.execScript(ctx, script)
	if err != nil {
		err = translate(err, "executing script")
	}
	h.emit(events.OpScript, "", rows, start, err)
	return err
}

func (h *Handle) execScript(ctx context.Context, script string) (int64, error) {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit

	res, err := tx.ExecContext(ctx, script)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil //nolint:nilerr // Count is informational only
	}
	return n, nil
}

// TableNames lists user tables, including SQLite's internal
// sqlite_sequence when present, ordered by name.
func (h *Handle) TableNames(ctx context.Context) ([]string, error) {
	if err := h.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := h.db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name")
	if err != nil {
		return nil, translate(err, "listing tables")
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, translate(err, "listing tables")
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "listing tables")
	}
	return names, nil
}

// HasTable reports whether a table with the given name exists.
// Matching follows SQLite's case-insensitive identifier rules.
func (h *Handle) HasTable(ctx context.Context, table string) (bool, error) {
	if err := h.checkOpen(); err != nil {
		return false, err
	}

	var n int
	err := h.db.QueryRowContext(ctx,
		"SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ? COLLATE NOCASE", table,
	).Scan(&n)
	if err != nil {
		return false, translate(err, "checking table")
	}
	return n > 0, nil
}

// Columns returns the column names of a table in declaration order.
func (h *Handle) Columns(ctx context.Context, table string) ([]string, error) {
	if err := h.requireTable(ctx, table); err != nil {
		return nil, err
	}

	rows, err := h.db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?) ORDER BY cid", table)
	if err != nil {
		return nil, translate(err, "reading columns")
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, translate(err, "reading columns")
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "reading columns")
	}
	return cols, nil
}

// GetAllRows returns every row of table in storage order.
func (h *Handle) GetAllRows(ctx context.Context, table string) ([]Row, error) {
	return h.GetSpecificRows(ctx, table, "")
}

// GetSpecificRows returns the rows of table matching filter, a SQL boolean
// expression with ? placeholders bound from args. An empty filter matches
// every row.
//
//	rows, err := h.GetSpecificRows(ctx, "table_one", "something_null IS NULL")
func (h *Handle) GetSpecificRows(ctx context.Context, table, filter string, args ...any) ([]Row, error) {
	if err := h.requireTable(ctx, table); err != nil {
		return nil, err
	}

	query := "SELECT * FROM " + QuoteIdent(table) + where(filter)
	h.trace("selecting rows", "table", table, "filter", filter)

	rows, err := h.query(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "selecting from "+table)
	}
	return rows, nil
}

// InsertRow inserts one row. rowTemplate is the parenthesised VALUES list,
// for example "(NULL, ?, ?)", with placeholders bound from values.
func (h *Handle) InsertRow(ctx context.Context, table, rowTemplate string, values ...any) (Result, error) {
	start := time.Now()
	if err := h.requireTable(ctx, table); err != nil {
		h.emit(events.OpInsert, table, 0, start, err)
		return Result{}, err
	}

	query := "INSERT INTO " + QuoteIdent(table) + " VALUES " + rowTemplate
	h.trace("inserting row", "table", table)

	res, err := h.exec(ctx, query, values...)
	if err != nil {
		err = translate(err, "inserting into "+table)
	}
	h.emit(events.OpInsert, table, res.RowsAffected, start, err)
	return res, err
}

// InsertRows inserts one row per entry of rows using a single prepared
// statement built from rowTemplate. Rows are applied in order. No
// transaction is opened: on failure, rows before the failing one stay
// inserted unless the caller wraps the call in its own transaction.
func (h *Handle) InsertRows(ctx context.Context, table, rowTemplate string, rows [][]any) (Result, error) {
	start := time.Now()
	if err := h.requireTable(ctx, table); err != nil {
		h.emit(events.OpInsert, table, 0, start, err)
		return Result{}, err
	}

	query := "INSERT INTO " + QuoteIdent(table) + " VALUES " + rowTemplate
	h.trace("inserting rows", "table", table, "count", len(rows))

	res, err := h.insertMany(ctx, query, rows)
	if err != nil {
		err = translate(err, "inserting into "+table)
	}
	h.emit(events.OpInsert, table, res.RowsAffected, start, err)
	return res, err
}

func (h *Handle) insertMany(ctx context.Context, query string, rows [][]any) (Result, error) {
	var total Result

	stmt, err := h.db.PrepareContext(ctx, query)
	if err != nil {
		return total, err
	}
	defer stmt.Close()

	for i, values := range rows {
		res, err := stmt.ExecContext(ctx, values...)
		if err != nil {
			return total, fmt.Errorf("row %d: %w", i, err)
		}
		r := toResult(res)
		total.RowsAffected += r.RowsAffected
		total.LastInsertID = r.LastInsertID
	}
	return total, nil
}

// UpdateRows applies setClause (for example "something_null = ?") to rows
// matching filter. values bind the SET placeholders, filterArgs the WHERE
// placeholders. An empty filter updates every row.
func (h *Handle) UpdateRows(ctx context.Context, table, setClause string, values []any, filter string, filterArgs ...any) (Result, error) {
	start := time.Now()
	if err := h.requireTable(ctx, table); err != nil {
		h.emit(events.OpUpdate, table, 0, start, err)
		return Result{}, err
	}

	query := "UPDATE " + QuoteIdent(table) + " SET " + setClause + where(filter)
	args := make([]any, 0, len(values)+len(filterArgs))
	args = append(args, values...)
	args = append(args, filterArgs...)
	h.trace("updating rows", "table", table, "set", setClause, "filter", filter)

	res, err := h.exec(ctx, query, args...)
	if err != nil {
		err = translate(err, "updating "+table)
	}
	h.emit(events.OpUpdate, table, res.RowsAffected, start, err)
	return res, err
}

// DeleteRows deletes rows of table matching filter. An empty filter deletes
// every row.
func (h *Handle) DeleteRows(ctx context.Context, table, filter string, args ...any) (Result, error) {
	start := time.Now()
	if err := h.requireTable(ctx, table); err != nil {
		h.emit(events.OpDelete, table, 0, start, err)
		return Result{}, err
	}

	query := "DELETE FROM " + QuoteIdent(table) + where(filter)
	h.trace("deleting rows", "table", table, "filter", filter)

	res, err := h.exec(ctx, query, args...)
	if err != nil {
		err = translate(err, "deleting from "+table)
	}
	h.emit(events.OpDelete, table, res.RowsAffected, start, err)
	return res, err
}

// checkOpen fails with ErrClosed once Close has been called.
func (h *Handle) checkOpen() error {
	if !h.open {
		return fmt.Errorf("%w: %s", ErrClosed, h.name)
	}
	return nil
}

// requireTable fails with ErrTableDoesNotExist before any statement runs.
func (h *Handle) requireTable(ctx context.Context, table string) error {
	ok, err := h.HasTable(ctx, table)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %q", ErrTableDoesNotExist, table)
	}
	return nil
}

func (h *Handle) exec(ctx context.Context, query string, args ...any) (Result, error) {
	res, err := h.db.ExecContext(ctx, query, args...)
	if err != nil {
		return Result{}, err
	}
	return toResult(res), nil
}

func (h *Handle) query(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

// scanRows materialises a result set. Values keep the storage class the
// driver reports: TEXT arrives as string, BLOB as []byte, whatever the
// column's declared type.
func scanRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := []Row{}
	for rows.Next() {
		values := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		result = append(result, Row(values))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func toResult(res sql.Result) Result {
	var r Result
	if n, err := res.RowsAffected(); err == nil {
		r.RowsAffected = n
	}
	if id, err := res.LastInsertId(); err == nil {
		r.LastInsertID = id
	}
	return r
}

// where renders an optional WHERE clause.
func where(filter string) string {
	if strings.TrimSpace(filter) == "" {
		return ""
	}
	return " WHERE " + filter
}

// QuoteIdent quotes a table or column name for direct interpolation into SQL.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// trace logs an operation at info when verbose, debug otherwise.
func (h *Handle) trace(msg string, args ...any) {
	args = append([]any{"db", h.name}, args...)
	if h.verbose {
		h.logger.Info(msg, args...)
		return
	}
	h.logger.Debug(msg, args...)
}

// emit reports a mutating operation to the configured notifier.
func (h *Handle) emit(op events.Op, table string, rows int64, start time.Time, err error) {
	if err != nil {
		h.logger.Warn("operation failed", "db", h.name, "op", string(op), "table", table, "error", err)
	}
	if h.notifier == nil {
		return
	}
	h.notifier.Notify(events.Event{
		Database:  h.name,
		Table:     table,
		Op:        op,
		Rows:      rows,
		Duration:  time.Since(start),
		ErrorKind: Kind(err),
		Timestamp: time.Now().UTC(),
	})
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
