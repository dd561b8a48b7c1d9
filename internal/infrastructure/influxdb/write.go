package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WritePoint writes a point stamped with the current time.
//
// The write is non-blocking; points are batched and sent asynchronously.
// Failures surface through the SetOnError callback.
//
// Example:
//
//	client.WritePoint("sql_operations",
//	    map[string]string{"database": "inventory", "op": "insert"},
//	    map[string]any{"rows": int64(3)})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a point with an explicit timestamp.
// Points written while disconnected are dropped.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
