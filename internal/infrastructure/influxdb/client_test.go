package influxdb_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/neosqlite/internal/infrastructure/config"
	"github.com/nerrad567/neosqlite/internal/infrastructure/influxdb"
)

// testConfig returns a configuration for a local dev InfluxDB.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "neosqlite-dev-token",
		Org:           "neosqlite",
		Bucket:        "operations",
		BatchSize:     100,
		FlushInterval: 1, // 1 second for faster test feedback
	}
}

// connectOrSkip connects to the local InfluxDB or skips the test.
func connectOrSkip(t *testing.T, cfg config.InfluxDBConfig) *influxdb.Client {
	t.Helper()

	client, err := influxdb.Connect(cfg)
	if err != nil {
		t.Skipf("InfluxDB not available, skipping integration test: %v", err)
	}
	t.Cleanup(func() { client.Close() }) //nolint:errcheck // Test cleanup
	return client
}

// =============================================================================
// Connection Tests
// =============================================================================

func TestConnect(t *testing.T) {
	client := connectOrSkip(t, testConfig())

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_InvalidURL(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:59999" // Non-existent port

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_NonPositiveBatchSettings(t *testing.T) {
	for _, v := range []int{0, -5} {
		cfg := testConfig()
		cfg.BatchSize = v
		cfg.FlushInterval = v

		client := connectOrSkip(t, cfg)
		if !client.IsConnected() {
			t.Errorf("IsConnected() = false with batch settings %d", v)
		}
	}
}

// =============================================================================
// Health Check Tests
// =============================================================================

func TestHealthCheck(t *testing.T) {
	client := connectOrSkip(t, testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestHealthCheck_AfterClose(t *testing.T) {
	client := connectOrSkip(t, testConfig())
	client.Close() //nolint:errcheck // Close under test

	if err := client.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

// =============================================================================
// Write Tests
// =============================================================================

func TestWritePoint(t *testing.T) {
	client := connectOrSkip(t, testConfig())

	var writeErr error
	var mu sync.Mutex
	client.SetOnError(func(err error) {
		mu.Lock()
		writeErr = err
		mu.Unlock()
	})

	client.WritePoint("sql_operations",
		map[string]string{"database": "test", "table": "table_one", "op": "insert"},
		map[string]any{"rows": int64(1), "duration_ms": 0.4, "failed": false},
	)
	client.WritePointWithTime("sql_operations",
		map[string]string{"database": "test", "op": "delete"},
		map[string]any{"rows": int64(5)},
		time.Now().Add(-time.Minute),
	)
	client.Flush()

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if writeErr != nil {
		t.Errorf("Write error = %v", writeErr)
	}
}

// =============================================================================
// Close Tests
// =============================================================================

func TestClose(t *testing.T) {
	client := connectOrSkip(t, testConfig())

	client.WritePoint("sql_operations", map[string]string{"op": "close-test"}, map[string]any{"rows": int64(0)})

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
	if err := client.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestClose_Nil(t *testing.T) {
	var client *influxdb.Client

	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true for nil client")
	}
}

func TestWriteOnDisconnectedClientIsDropped(t *testing.T) {
	client := &influxdb.Client{}

	// Must not panic: the write API is nil until Connect.
	client.WritePoint("sql_operations", nil, map[string]any{"rows": int64(1)})
	client.Flush()
}
