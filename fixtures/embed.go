// Package fixtures embeds SQL seed scripts into the binary.
//
// This allows the CLI and tests to seed a database without the .sql files
// being present on the filesystem.
package fixtures

import (
	"embed"

	"github.com/nerrad567/neosqlite/internal/fixture"
)

//go:embed *.sql
var FS embed.FS

// Loader returns a fixture loader over the embedded scripts.
func Loader() *fixture.Loader {
	return fixture.New(FS, ".")
}
