package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/nerrad567/neosqlite/internal/infrastructure/config"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// options holds the persistent flags shared by every command.
type options struct {
	configPath string
	dbPath     string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	o := &options{}

	cmd := &cobra.Command{
		Use:           "neosqlite",
		Short:         "Inspect, modify and serve a SQLite database",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&o.configPath, "config", "", "config file (default $NEOSQLITE_CONFIG, then "+defaultConfigPath+")")
	cmd.PersistentFlags().StringVar(&o.dbPath, "db", "", "database file, overrides database.path")
	cmd.PersistentFlags().BoolVarP(&o.verbose, "verbose", "v", false, "log every database action at info level")

	cmd.AddCommand(
		newTablesCmd(o),
		newRowsCmd(o),
		newExecCmd(o),
		newSeedCmd(o),
		newInitCmd(o),
		newTokenCmd(o),
		newServeCmd(o),
	)

	return cmd
}

// getConfigPath returns the configuration file path.
// The --config flag wins, then NEOSQLITE_CONFIG, then the default.
func getConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	if path := os.Getenv("NEOSQLITE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// loadConfig reads the configuration and applies flag overrides. A missing
// default config file is not an error: defaults and environment apply.
func loadConfig(o *options) (*config.Config, error) {
	path := getConfigPath(o.configPath)

	var cfg *config.Config
	var err error
	if _, statErr := os.Stat(path); errors.Is(statErr, fs.ErrNotExist) && path == defaultConfigPath {
		cfg, err = config.LoadEnv()
	} else {
		cfg, err = config.Load(path)
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if o.dbPath != "" {
		cfg.Database.Path = o.dbPath
	}
	if o.verbose {
		cfg.Database.Verbose = true
	}
	return cfg, nil
}
