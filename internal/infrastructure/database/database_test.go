package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// drivers lists every supported driver; most tests run against both.
var drivers = []string{DriverCGO, DriverPureGo}

// TestCreate verifies new database files are created on demand.
func TestCreate(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			t.Run("creates database file", func(t *testing.T) {
				dbPath := filepath.Join(t.TempDir(), "test.db")

				db, err := Create(context.Background(), Config{Path: dbPath, Driver: driver, BusyTimeout: 5})
				if err != nil {
					t.Fatalf("Create() error = %v", err)
				}
				defer db.Close() //nolint:errcheck // Test cleanup

				info, err := os.Stat(dbPath)
				if err != nil {
					t.Fatalf("database file was not created: %v", err)
				}
				if perm := info.Mode().Perm(); perm != filePermissions {
					t.Errorf("file permissions = %o, want %o", perm, filePermissions)
				}
			})

			t.Run("creates directory if not exists", func(t *testing.T) {
				dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "test.db")

				db, err := Create(context.Background(), Config{Path: dbPath, Driver: driver})
				if err != nil {
					t.Fatalf("Create() error = %v", err)
				}
				defer db.Close() //nolint:errcheck // Test cleanup

				if _, err := os.Stat(filepath.Dir(dbPath)); os.IsNotExist(err) {
					t.Error("database directory was not created")
				}
			})
		})
	}
}

// TestOpen verifies Open only accepts existing database files.
func TestOpen(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			t.Run("opens existing database", func(t *testing.T) {
				dbPath := createTestFile(t, driver)

				db, err := Open(context.Background(), Config{Path: dbPath, Driver: driver, BusyTimeout: 5})
				if err != nil {
					t.Fatalf("Open() error = %v", err)
				}
				defer db.Close() //nolint:errcheck // Test cleanup

				if db.Path() != dbPath {
					t.Errorf("Path() = %v, want %v", db.Path(), dbPath)
				}
				if db.Driver() != driver {
					t.Errorf("Driver() = %v, want %v", db.Driver(), driver)
				}
			})

			t.Run("missing file", func(t *testing.T) {
				dbPath := filepath.Join(t.TempDir(), "odfsjiojsdf.jojiv")

				_, err := Open(context.Background(), Config{Path: dbPath, Driver: driver})
				if !errors.Is(err, ErrNotFound) {
					t.Fatalf("Open() error = %v, want ErrNotFound", err)
				}
				if _, statErr := os.Stat(dbPath); !os.IsNotExist(statErr) {
					t.Error("Open() must not create the file")
				}
			})

			t.Run("directory", func(t *testing.T) {
				_, err := Open(context.Background(), Config{Path: t.TempDir(), Driver: driver})
				if !errors.Is(err, ErrNotAFile) {
					t.Fatalf("Open() error = %v, want ErrNotAFile", err)
				}
			})

			t.Run("not a database", func(t *testing.T) {
				dbPath := filepath.Join(t.TempDir(), "notes.txt")
				content := []byte(strings.Repeat("plain text, certainly not a sqlite database\n", 10))
				if err := os.WriteFile(dbPath, content, 0600); err != nil {
					t.Fatalf("writing file: %v", err)
				}

				_, err := Open(context.Background(), Config{Path: dbPath, Driver: driver})
				if !errors.Is(err, ErrInvalidDatabase) {
					t.Fatalf("Open() error = %v, want ErrInvalidDatabase", err)
				}
			})
		})
	}

	t.Run("unknown driver", func(t *testing.T) {
		dbPath := createTestFile(t, DriverCGO)

		_, err := Open(context.Background(), Config{Path: dbPath, Driver: "postgres"})
		if !errors.Is(err, ErrUnknownDriver) {
			t.Fatalf("Open() error = %v, want ErrUnknownDriver", err)
		}
	})

	t.Run("empty driver defaults to cgo", func(t *testing.T) {
		dbPath := createTestFile(t, DriverCGO)

		db, err := Open(context.Background(), Config{Path: dbPath})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer db.Close() //nolint:errcheck // Test cleanup

		if db.Driver() != DriverCGO {
			t.Errorf("Driver() = %v, want %v", db.Driver(), DriverCGO)
		}
	})
}

// TestHealthCheck verifies the health check functionality.
func TestHealthCheck(t *testing.T) {
	db := openTestDB(t, DriverCGO)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

// TestClose verifies graceful shutdown.
func TestClose(t *testing.T) {
	db := openTestDB(t, DriverCGO)

	if err := db.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	db.DB = nil
	if err := db.Close(); err != nil {
		t.Errorf("Close() on nil DB error = %v", err)
	}
}

// TestExecContext verifies query execution.
func TestExecContext(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			db := openTestDB(t, driver)
			defer db.Close() //nolint:errcheck // Test cleanup

			ctx := context.Background()

			_, err := db.ExecContext(ctx, `
				CREATE TABLE test_table (
					id INTEGER PRIMARY KEY,
					name TEXT NOT NULL
				)
			`)
			if err != nil {
				t.Fatalf("ExecContext() CREATE error = %v", err)
			}

			result, err := db.ExecContext(ctx, "INSERT INTO test_table (name) VALUES (?)", "test")
			if err != nil {
				t.Fatalf("ExecContext() INSERT error = %v", err)
			}

			id, err := result.LastInsertId()
			if err != nil {
				t.Fatalf("LastInsertId() error = %v", err)
			}
			if id != 1 {
				t.Errorf("LastInsertId() = %v, want 1", id)
			}
		})
	}
}

// TestResultCode verifies SQLite result codes are extracted from both drivers.
func TestResultCode(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			db := openTestDB(t, driver)
			defer db.Close() //nolint:errcheck // Test cleanup

			ctx := context.Background()
			if _, err := db.ExecContext(ctx, "CREATE TABLE uniq (v TEXT NOT NULL UNIQUE)"); err != nil {
				t.Fatalf("CREATE TABLE error = %v", err)
			}
			if _, err := db.ExecContext(ctx, "INSERT INTO uniq (v) VALUES ('a')"); err != nil {
				t.Fatalf("INSERT error = %v", err)
			}

			_, err := db.ExecContext(ctx, "INSERT INTO uniq (v) VALUES ('a')")
			if err == nil {
				t.Fatal("duplicate INSERT succeeded")
			}
			code, ok := ResultCode(err)
			if !ok {
				t.Fatalf("ResultCode(%v) found no code", err)
			}
			if code != sqliteConstraint {
				t.Errorf("ResultCode() = %d, want %d", code, sqliteConstraint)
			}

			_, err = db.ExecContext(ctx, "DELETE * FROM uniq")
			code, ok = ResultCode(err)
			if !ok || code != sqliteError {
				t.Errorf("ResultCode() for syntax error = %d, %v; want %d", code, ok, sqliteError)
			}
		})
	}

	if _, ok := ResultCode(context.Canceled); ok {
		t.Error("ResultCode(context.Canceled) reported a SQLite code")
	}
}

// TestCodeText verifies SQLite's descriptions are surfaced.
func TestCodeText(t *testing.T) {
	if got := CodeText(sqliteConstraint); got != "constraint failed" {
		t.Errorf("CodeText(SQLITE_CONSTRAINT) = %q, want %q", got, "constraint failed")
	}
}

// TestBeginTxRollback verifies transaction rollback.
func TestBeginTxRollback(t *testing.T) {
	db := openTestDB(t, DriverCGO)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx := context.Background()

	_, err := db.ExecContext(ctx, "CREATE TABLE tx_rollback_test (id INTEGER PRIMARY KEY, value TEXT)")
	if err != nil {
		t.Fatalf("CREATE TABLE error = %v", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx() error = %v", err)
	}

	_, err = tx.ExecContext(ctx, "INSERT INTO tx_rollback_test (value) VALUES (?)", "rolled_back")
	if err != nil {
		t.Fatalf("INSERT error = %v", err)
	}

	if err = tx.Rollback(); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}

	var count int
	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tx_rollback_test WHERE value = ?", "rolled_back").Scan(&count)
	if err != nil {
		t.Fatalf("SELECT error = %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 rows, got %d", count)
	}
}

// TestStats verifies the pool is pinned to one connection.
func TestStats(t *testing.T) {
	db := openTestDB(t, DriverCGO)
	defer db.Close() //nolint:errcheck // Test cleanup

	stats := db.Stats()
	if stats.MaxOpenConnections != 1 {
		t.Errorf("MaxOpenConnections = %v, want 1", stats.MaxOpenConnections)
	}
}

func TestEscapePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/data/app.db", "/data/app.db"},
		{"/data/what?.db", "/data/what%3f.db"},
		{"/data/#1.db", "/data/%231.db"},
		{"/data/100%.db", "/data/100%25.db"},
	}
	for _, tt := range tests {
		if got := escapePath(tt.in); got != tt.want {
			t.Errorf("escapePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// SQLite primary result codes used by the tests.
const (
	sqliteError      = 1
	sqliteConstraint = 19
)

// createTestFile creates an empty database file and returns its path.
func createTestFile(t *testing.T, driver string) string {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := Create(context.Background(), Config{Path: dbPath, Driver: driver})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("failed to close test database: %v", err)
	}
	return dbPath
}

// openTestDB opens a fresh temporary database for testing.
func openTestDB(t *testing.T, driver string) *DB {
	t.Helper()

	db, err := Open(context.Background(), Config{
		Path:        createTestFile(t, driver),
		Driver:      driver,
		BusyTimeout: 5,
		ForeignKeys: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	return db
}
