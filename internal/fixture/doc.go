// Package fixture loads named SQL seed scripts and applies them to a
// database handle.
//
// Fixtures give tests and the CLI a known baseline: each script drops and
// recreates the tables it owns, then inserts its rows. This is deliberately
// not a migration engine; nothing records which fixtures ran.
//
// Usage:
//
//	loader := fixture.New(fixtures.FS, ".")
//	if err := loader.Apply(ctx, handle, "table_one"); err != nil {
//	    return err
//	}
package fixture
