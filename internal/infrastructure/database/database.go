package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver (cgo)
	_ "modernc.org/sqlite"          // SQLite driver (pure Go)
)

// Database configuration constants.
const (
	// dirPermissions is the permission mode for directories created by Create.
	dirPermissions = 0750

	// filePermissions is the permission mode for files created by Create.
	filePermissions = 0600

	// msPerSecond converts seconds to milliseconds.
	msPerSecond = 1000

	// connectionTimeout bounds the ping and schema read performed on open.
	connectionTimeout = 5 * time.Second
)

// Driver names registered with database/sql.
const (
	DriverCGO    = "sqlite3" // github.com/mattn/go-sqlite3
	DriverPureGo = "sqlite"  // modernc.org/sqlite
)

// DB wraps a sql.DB pinned to a single SQLite connection.
type DB struct {
	*sql.DB
	path   string
	driver string
}

// Config contains connection options.
// These map to the database section of config.yaml.
type Config struct {
	// Path is the filesystem path to the SQLite database file.
	Path string

	// Driver selects the database/sql driver. Empty means DriverCGO.
	Driver string

	// BusyTimeout is the maximum time to wait for a database lock (seconds).
	BusyTimeout int

	// ForeignKeys enables foreign key enforcement.
	ForeignKeys bool
}

// Open connects to an existing SQLite database file.
//
// Unlike Create it never creates anything on disk. It:
//  1. Checks the path names an existing regular file
//  2. Opens it read-write through the configured driver
//  3. Pins the pool to one connection
//  4. Pings and reads sqlite_master to prove the file is a database
//
// Failures wrap ErrNotFound, ErrNotAFile, ErrUnknownDriver or ErrInvalidDatabase.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	info, err := os.Stat(cfg.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, cfg.Path)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidDatabase, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrNotAFile, cfg.Path)
	}

	return open(ctx, cfg, "rw")
}

// Create creates a new, empty SQLite database file (and its parent
// directories) and opens it. An existing file is opened as-is.
func Create(ctx context.Context, cfg Config) (*DB, error) {
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := open(ctx, cfg, "rwc")
	if err != nil {
		return nil, err
	}

	// Force the file into existence before tightening its permissions.
	if _, err := db.DB.ExecContext(ctx, "PRAGMA user_version"); err != nil {
		db.DB.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("initialising database file: %w", err)
	}
	if err := os.Chmod(cfg.Path, filePermissions); err != nil {
		db.DB.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("setting database file permissions: %w", err)
	}

	return db, nil
}

func open(ctx context.Context, cfg Config, mode string) (*DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverCGO
	}

	connStr, err := buildConnString(driver, cfg, mode)
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open(driver, connStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDatabase, err)
	}

	// One handle, one connection. Recycling would silently drop
	// connection-scoped state such as temp tables.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	sqlDB.SetConnMaxIdleTime(0)

	db := &DB{
		DB:     sqlDB,
		path:   cfg.Path,
		driver: driver,
	}

	verifyCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	if err := db.verify(verifyCtx); err != nil {
		sqlDB.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("%w: %w", ErrInvalidDatabase, err)
	}

	return db, nil
}

// verify pings the connection and reads the schema catalog. SQLite opens
// files lazily, so a non-database file is only detected on first read.
func (db *DB) verify(ctx context.Context) error {
	if err := db.PingContext(ctx); err != nil {
		return err
	}
	var n int
	return db.DB.QueryRowContext(ctx, "SELECT count(*) FROM sqlite_master").Scan(&n)
}

// buildConnString renders the DSN for the chosen driver. The two drivers
// spell connection pragmas differently.
func buildConnString(driver string, cfg Config, mode string) (string, error) {
	busy := cfg.BusyTimeout * msPerSecond
	fk := 0
	if cfg.ForeignKeys {
		fk = 1
	}
	uri := "file:" + escapePath(cfg.Path) + "?mode=" + mode

	switch driver {
	case DriverCGO:
		// See: https://github.com/mattn/go-sqlite3#connection-string
		return fmt.Sprintf("%s&_busy_timeout=%d&_foreign_keys=%d", uri, busy, fk), nil
	case DriverPureGo:
		return fmt.Sprintf("%s&_pragma=busy_timeout(%d)&_pragma=foreign_keys(%d)", uri, busy, fk), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

// escapePath makes a filesystem path safe to embed in a SQLite URI.
func escapePath(path string) string {
	return strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23").Replace(path)
}

// Close closes the database connection. Calling it more than once is safe.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Path returns the filesystem path to the database file.
func (db *DB) Path() string {
	return db.path
}

// Driver returns the database/sql driver name in use.
func (db *DB) Driver() string {
	return db.driver
}

// HealthCheck verifies the database is accessible and functioning.
func (db *DB) HealthCheck(ctx context.Context) error {
	var result int
	err := db.DB.QueryRowContext(ctx, "SELECT 1").Scan(&result)
	if err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// Stats returns database connection pool statistics.
func (db *DB) Stats() sql.DBStats {
	return db.DB.Stats()
}

// ExecContext executes a statement that doesn't return rows.
// The driver error stays reachable through errors.As.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	result, err := db.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	return result, nil
}

// QueryContext executes a statement that returns rows.
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("running query: %w", err)
	}
	return rows, nil
}

// BeginTx starts a new transaction with the given options.
//
// Example:
//
//	tx, err := db.BeginTx(ctx, nil)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback() // No-op if committed
//
//	// ... execute queries on tx ...
//
//	return tx.Commit()
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	tx, err := db.DB.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	return tx, nil
}
