package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/neosqlite/fixtures"
	"github.com/nerrad567/neosqlite/internal/api"
	"github.com/nerrad567/neosqlite/internal/infrastructure/database"
	"github.com/nerrad567/neosqlite/internal/sqlitedb"
)

// withApp loads configuration, opens the database and runs fn against it.
func withApp(cmd *cobra.Command, o *options, fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := openApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	return fn(ctx, a)
}

func newTablesCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the tables of the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, o, func(ctx context.Context, a *app) error {
				names, err := a.handle.TableNames(ctx)
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			})
		},
	}
}

func newRowsCmd(o *options) *cobra.Command {
	var (
		where  string
		args   []string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "rows <table>",
		Short: "Print the rows of a table",
		Example: `  neosqlite rows table_one
  neosqlite rows table_one --where "something_not_null = ?" --arg curry`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, pos []string) error {
			table := pos[0]
			return withApp(cmd, o, func(ctx context.Context, a *app) error {
				cols, err := a.handle.Columns(ctx, table)
				if err != nil {
					return err
				}
				rows, err := a.handle.GetSpecificRows(ctx, table, where, stringArgs(args)...)
				if err != nil {
					return err
				}
				if asJSON {
					return writeRowsJSON(cmd.OutOrStdout(), cols, rows)
				}
				return writeRowsTable(cmd.OutOrStdout(), cols, rows)
			})
		},
	}

	cmd.Flags().StringVar(&where, "where", "", "SQL filter expression, ? placeholders bound from --arg")
	cmd.Flags().StringArrayVar(&args, "arg", nil, "value bound to the next ? in --where (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print one JSON object per row")
	return cmd
}

func newExecCmd(o *options) *cobra.Command {
	var (
		file  string
		query bool
	)

	cmd := &cobra.Command{
		Use:   "exec [sql] [args...]",
		Short: "Run a SQL statement or, with --file, a script in one transaction",
		Example: `  neosqlite exec "INSERT INTO table_one VALUES (NULL, ?, ?)" toast marmite
  neosqlite exec --query "SELECT count(*) FROM table_one"
  neosqlite exec --file reset.sql`,
		RunE: func(cmd *cobra.Command, pos []string) error {
			if file == "" && len(pos) == 0 {
				return fmt.Errorf("a SQL statement or --file is required")
			}
			if file != "" && len(pos) > 0 {
				return fmt.Errorf("--file takes no positional arguments")
			}

			return withApp(cmd, o, func(ctx context.Context, a *app) error {
				out := cmd.OutOrStdout()

				if file != "" {
					script, err := os.ReadFile(file)
					if err != nil {
						return fmt.Errorf("reading script: %w", err)
					}
					if err := a.handle.ExecuteScript(ctx, string(script)); err != nil {
						return err
					}
					fmt.Fprintf(out, "script %s applied\n", file)
					return nil
				}

				if query {
					rows, err := a.handle.Query(ctx, pos[0], stringArgs(pos[1:])...)
					if err != nil {
						return err
					}
					return writeRowsTable(out, nil, rows)
				}

				res, err := a.handle.ExecuteSQL(ctx, pos[0], stringArgs(pos[1:])...)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "rows affected: %d, last insert id: %d\n", res.RowsAffected, res.LastInsertID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "run a multi-statement script file atomically")
	cmd.Flags().BoolVarP(&query, "query", "q", false, "print the rows the statement returns")
	return cmd
}

func newSeedCmd(o *options) *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "seed [fixture...]",
		Short: "Apply embedded fixtures, resetting the tables they own",
		RunE: func(cmd *cobra.Command, names []string) error {
			loader := fixtures.Loader()
			out := cmd.OutOrStdout()

			if list {
				available, err := loader.List()
				if err != nil {
					return err
				}
				for _, name := range available {
					fmt.Fprintln(out, name)
				}
				return nil
			}
			if len(names) == 0 {
				return fmt.Errorf("name at least one fixture (see --list)")
			}

			return withApp(cmd, o, func(ctx context.Context, a *app) error {
				for _, name := range names {
					if err := loader.Apply(ctx, a.handle, name); err != nil {
						return err
					}
					fmt.Fprintf(out, "fixture %s applied\n", name)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "list the embedded fixtures")
	return cmd
}

func newInitCmd(o *options) *cobra.Command {
	var seed []string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a new empty database file",
		Long: `Create the configured database file (parent directories 0750, file 0600).
Every other command opens existing files only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(o)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if _, statErr := os.Stat(cfg.Database.Path); statErr == nil {
				return fmt.Errorf("database %s already exists", cfg.Database.Path)
			}

			db, err := database.Create(ctx, database.Config{
				Path:        cfg.Database.Path,
				Driver:      cfg.Database.Driver,
				BusyTimeout: cfg.Database.BusyTimeout,
			})
			if err != nil {
				return fmt.Errorf("creating database: %w", err)
			}
			if err := db.Close(); err != nil {
				return fmt.Errorf("closing database: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", cfg.Database.Path)

			if len(seed) == 0 {
				return nil
			}
			a, err := openApp(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer a.close(ctx)
			for _, name := range seed {
				if err := fixtures.Loader().Apply(ctx, a.handle, name); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "fixture %s applied\n", name)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&seed, "seed", nil, "fixtures to apply after creating the file")
	return cmd
}

func newTokenCmd(o *options) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an API bearer token signed with security.jwt.secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(o)
			if err != nil {
				return err
			}
			if ttl == 0 {
				ttl = time.Duration(cfg.Security.JWT.AccessTokenTTL) * time.Minute
			}

			token, err := api.IssueToken(cfg.Security.JWT.Secret, subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "neosqlite", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default security.jwt.access_token_ttl minutes)")
	return cmd
}

// stringArgs converts positional strings to bind arguments. SQLite's type
// affinity converts them where the column demands it.
func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

// writeRowsTable prints rows as aligned columns, with a header when cols
// is known.
func writeRowsTable(out io.Writer, cols []string, rows []sqlitedb.Row) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if len(cols) > 0 {
		fmt.Fprintln(tw, strings.Join(cols, "\t"))
	}
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatValue(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

// writeRowsJSON prints one JSON object per row keyed by column name.
func writeRowsJSON(out io.Writer, cols []string, rows []sqlitedb.Row) error {
	enc := json.NewEncoder(out)
	for _, row := range rows {
		obj := make(map[string]any, len(cols))
		for i, v := range row {
			if i < len(cols) {
				obj[cols[i]] = v
			}
		}
		if err := enc.Encode(obj); err != nil {
			return fmt.Errorf("encoding row: %w", err)
		}
	}
	return nil
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return fmt.Sprintf("x'%x'", v)
	default:
		return fmt.Sprint(v)
	}
}
