package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/neosqlite/internal/api"
)

func newServeCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and stream change events over WebSocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(o)
			if err != nil {
				return err
			}
			cfg.API.Enabled = true
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("validating config: %w", err)
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, cfg, true)
			if err != nil {
				return err
			}
			defer a.close(context.WithoutCancel(ctx))

			return runServer(ctx, a)
		},
	}
}

// runServer starts the API over an open app and blocks until ctx is
// cancelled. The hub and the server stop together.
func runServer(ctx context.Context, a *app) error {
	log := a.log
	log.Info("starting neosqlite",
		"version", version,
		"commit", commit,
		"build_date", date,
		"database", a.handle.Name(),
	)

	if err := a.healthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	deps := api.Deps{
		Config:   a.cfg.API,
		WS:       a.cfg.WebSocket,
		Security: a.cfg.Security,
		Logger:   log.With("component", "api"),
		Handle:   a.handle,
		Hub:      a.hub,
		Version:  version,
	}
	if a.registry != nil {
		deps.Gatherer = prometheus.Gatherers{a.registry, prometheus.DefaultGatherer}
	}

	srv, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.hub.Run(gctx)
		return nil
	})

	if err := srv.Start(gctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal",
		"address", fmt.Sprintf("%s:%d", a.cfg.API.Host, a.cfg.API.Port),
	)

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, cleaning up")
		return srv.Close()
	})

	return g.Wait()
}
