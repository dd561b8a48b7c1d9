package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/neosqlite/internal/api"
	"github.com/nerrad567/neosqlite/internal/events"
	"github.com/nerrad567/neosqlite/internal/infrastructure/config"
	"github.com/nerrad567/neosqlite/internal/infrastructure/influxdb"
	"github.com/nerrad567/neosqlite/internal/infrastructure/logging"
	"github.com/nerrad567/neosqlite/internal/infrastructure/mqtt"
	"github.com/nerrad567/neosqlite/internal/sqlitedb"
)

// pushJob is the Pushgateway job name used by one-shot commands.
const pushJob = "neosqlite"

// app is an open database handle with its event sinks wired in.
type app struct {
	cfg    *config.Config
	log    *logging.Logger
	handle *sqlitedb.Handle

	registry *prometheus.Registry
	metrics  *events.Metrics
	hub      *api.Hub
	mqtt     *mqtt.Client
	influx   *influxdb.Client

	// closers run in reverse order on close.
	closers []func()
}

// openApp connects the configured event sinks and opens the database.
// withHub adds a WebSocket hub to the sinks for the API server.
func openApp(ctx context.Context, cfg *config.Config, withHub bool) (*app, error) {
	a := &app{
		cfg: cfg,
		log: logging.New(cfg.Logging, version),
	}

	notifier, err := a.buildNotifier(withHub)
	if err != nil {
		a.close(ctx)
		return nil, err
	}

	h, err := sqlitedb.Open(ctx, sqlitedb.Options{
		Name:        cfg.Database.Name,
		Path:        cfg.Database.Path,
		Verbose:     cfg.Database.Verbose,
		Driver:      cfg.Database.Driver,
		BusyTimeout: cfg.Database.BusyTimeout,
		ForeignKeys: cfg.Database.ForeignKeys,
		Logger:      a.log.With("component", "sqlitedb"),
		Notifier:    notifier,
	})
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	a.handle = h
	a.closers = append(a.closers, func() {
		if closeErr := h.Close(); closeErr != nil {
			a.log.Error("error closing database", "error", closeErr)
		}
	})

	return a, nil
}

// buildNotifier connects every enabled sink and fans events out to them.
// Network sinks sit behind one Async queue so they never slow the handle.
func (a *app) buildNotifier(withHub bool) (events.Notifier, error) {
	var sinks events.Multi

	if a.cfg.Metrics.Enabled {
		a.registry = prometheus.NewRegistry()
		m, err := events.NewMetrics(a.registry)
		if err != nil {
			return nil, err
		}
		a.metrics = m
		sinks = append(sinks, m)
	}

	var remote events.Multi

	if a.cfg.MQTT.Enabled {
		client, err := mqtt.Connect(a.cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("connecting to MQTT: %w", err)
		}
		client.SetLogger(a.log)
		client.SetOnConnect(func() {
			a.log.Info("MQTT reconnected")
		})
		client.SetOnDisconnect(func(err error) {
			a.log.Warn("MQTT connection lost", "error", err)
		})
		a.mqtt = client
		a.closers = append(a.closers, func() {
			if closeErr := client.Close(); closeErr != nil {
				a.log.Error("error closing MQTT", "error", closeErr)
			}
		})
		a.log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", a.cfg.MQTT.Broker.Host, a.cfg.MQTT.Broker.Port),
			"client_id", a.cfg.MQTT.Broker.ClientID,
		)
		remote = append(remote, events.NewMQTTPublisher(client, client.Topics(), byte(a.cfg.MQTT.QoS), a.log)) // #nosec G115 -- validated 0..2
	}

	if a.cfg.InfluxDB.Enabled {
		client, err := influxdb.Connect(a.cfg.InfluxDB)
		if err != nil {
			return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		client.SetOnError(func(err error) {
			a.log.Error("InfluxDB write error", "error", err)
		})
		a.influx = client
		a.closers = append(a.closers, func() {
			if closeErr := client.Close(); closeErr != nil {
				a.log.Error("error closing InfluxDB", "error", closeErr)
			}
		})
		a.log.Info("InfluxDB connected", "url", a.cfg.InfluxDB.URL, "bucket", a.cfg.InfluxDB.Bucket)
		remote = append(remote, events.NewInfluxRecorder(client))
	}

	if len(remote) > 0 {
		async := events.NewAsync(remote, events.DefaultBuffer)
		a.closers = append(a.closers, func() {
			async.Close()
			if dropped := async.Dropped(); dropped > 0 {
				a.log.Warn("change events dropped", "count", dropped)
			}
		})
		sinks = append(sinks, async)
	}

	if withHub {
		a.hub = api.NewHub(a.cfg.WebSocket, a.log)
		sinks = append(sinks, a.hub)
	}

	return sinks, nil
}

// close pushes metrics when a Pushgateway is configured, then releases
// everything openApp acquired.
func (a *app) close(ctx context.Context) {
	if a.metrics != nil && a.cfg.Metrics.PushGateway != "" {
		if err := a.metrics.Push(ctx, a.cfg.Metrics.PushGateway, pushJob); err != nil {
			a.log.Warn("pushing metrics failed", "gateway", a.cfg.Metrics.PushGateway, "error", err)
		}
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// healthCheck verifies all infrastructure connections are healthy.
func (a *app) healthCheck(ctx context.Context) error {
	if err := a.handle.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if a.mqtt != nil {
		if err := a.mqtt.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if a.influx != nil {
		if err := a.influx.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
