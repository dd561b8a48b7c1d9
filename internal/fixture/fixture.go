package fixture

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// fixtureExt is the filename suffix of fixture scripts.
const fixtureExt = ".sql"

// ErrNotFound is returned when a named fixture has no script.
var ErrNotFound = errors.New("fixture: not found")

// ErrEmpty is returned when a fixture script contains no SQL.
var ErrEmpty = errors.New("fixture: empty script")

// Runner executes a multi-statement SQL script atomically.
// *sqlitedb.Handle satisfies it.
type Runner interface {
	ExecuteScript(ctx context.Context, script string) error
}

// Fixture is one named seed script.
type Fixture struct {
	// Name is the filename without the .sql suffix (e.g. "table_one").
	Name string

	// SQL is the full script text.
	SQL string
}

// Loader reads fixture scripts from a filesystem, usually an embed.FS.
type Loader struct {
	fsys fs.FS
	dir  string
}

// New creates a Loader over the .sql files in dir of fsys.
// Use "." when the scripts sit at the root of the filesystem.
func New(fsys fs.FS, dir string) *Loader {
	return &Loader{fsys: fsys, dir: dir}
}

// List returns the names of all available fixtures in lexical order.
func (l *Loader) List() ([]string, error) {
	entries, err := fs.ReadDir(l.fsys, l.dir)
	if err != nil {
		return nil, fmt.Errorf("reading fixture directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fixtureExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), fixtureExt))
	}
	sort.Strings(names)
	return names, nil
}

// Get loads a single fixture by name.
func (l *Loader) Get(name string) (Fixture, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return Fixture{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	data, err := fs.ReadFile(l.fsys, path.Join(l.dir, name+fixtureExt))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Fixture{}, fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return Fixture{}, fmt.Errorf("reading fixture %q: %w", name, err)
	}

	script := string(data)
	if strings.TrimSpace(script) == "" {
		return Fixture{}, fmt.Errorf("%w: %q", ErrEmpty, name)
	}

	return Fixture{Name: name, SQL: script}, nil
}

// Apply loads the named fixture and runs it through r.
//
// Fixtures are expected to be re-runnable: each one drops and recreates the
// tables it owns, so applying it again resets those tables to a known
// baseline. No record of applied fixtures is kept.
func (l *Loader) Apply(ctx context.Context, r Runner, name string) error {
	f, err := l.Get(name)
	if err != nil {
		return err
	}

	if err := r.ExecuteScript(ctx, f.SQL); err != nil {
		return fmt.Errorf("applying fixture %q: %w", name, err)
	}
	return nil
}
