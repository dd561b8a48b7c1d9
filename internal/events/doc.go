// Package events carries change notifications out of the database handle.
//
// Every mutating handle operation (raw SQL, scripts, inserts, updates,
// deletes) produces one Event, successful or not. Sinks implement Notifier:
//
//   - MQTTPublisher publishes JSON on <prefix>/<database>/<table>/<op>
//   - InfluxRecorder writes a "sql_operations" point
//   - Metrics updates Prometheus counters and a duration histogram
//
// Multi fans one event out to several sinks; Async puts a bounded queue in
// front of sinks that talk to the network so the handle never waits on them.
package events
