package events

import (
	"time"
)

// Measurement is the InfluxDB measurement written for every operation.
const Measurement = "sql_operations"

// PointWriter is the subset of *influxdb.Client used to record events.
type PointWriter interface {
	WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, timestamp time.Time)
}

// InfluxRecorder writes one point per event.
//
// Tags: database, table, op, error_kind (when failed).
// Fields: rows, duration_ms, failed.
type InfluxRecorder struct {
	w PointWriter
}

// NewInfluxRecorder creates a recorder writing through w.
func NewInfluxRecorder(w PointWriter) *InfluxRecorder {
	return &InfluxRecorder{w: w}
}

// Notify writes e as a point stamped with the event time.
func (r *InfluxRecorder) Notify(e Event) {
	tags := map[string]string{
		"database": e.Database,
		"op":       string(e.Op),
	}
	if e.Table != "" {
		tags["table"] = e.Table
	}
	if e.Failed() {
		tags["error_kind"] = e.ErrorKind
	}

	fields := map[string]any{
		"rows":        e.Rows,
		"duration_ms": float64(e.Duration) / float64(time.Millisecond),
		"failed":      e.Failed(),
	}

	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	r.w.WritePointWithTime(Measurement, tags, fields, ts)
}
