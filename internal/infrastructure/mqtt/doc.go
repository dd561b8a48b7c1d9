// Package mqtt provides MQTT client connectivity for neosqlite.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing change events with QoS guarantees
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// Every mutating handle operation can be published as a JSON event on
//
//	<prefix>/<database>/<table>/<op>
//
// with a retained online/offline marker on <prefix>/system/status.
//
// # Security Considerations
//
//   - Enable TLS (cfg.Broker.TLS=true) for any broker off the local host
//   - Credentials are validated against the broker ACL
//   - Payloads carry table names and row counts, never row values
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := client.Topics().Change("inventory", "table_one", "insert")
//	err = client.Publish(topic, []byte(`{"rows":1}`), 1, false)
package mqtt
