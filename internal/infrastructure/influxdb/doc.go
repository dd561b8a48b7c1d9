// Package influxdb provides InfluxDB connectivity for neosqlite.
//
// It wraps the official influxdb-client-go v2 library for recording one
// point per mutating handle operation (measurement "sql_operations").
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WritePoint("sql_operations",
//	    map[string]string{"database": "inventory", "op": "delete"},
//	    map[string]any{"rows": int64(5)})
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Writes are non-blocking; batch errors are delivered to the SetOnError
// callback. Connection and health check errors are returned directly.
package influxdb
