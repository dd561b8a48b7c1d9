// Package api implements the HTTP REST API and WebSocket server for neosqlite.
//
// This package provides:
//   - REST endpoints to list tables and columns and to read, insert, update
//     and delete rows of the served database
//   - WebSocket hub broadcasting change events from the database handle
//   - JWT bearer authentication with ticket-based WebSocket auth
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//   - Prometheus exposition on /api/v1/metrics
//
// # Filters
//
// Row endpoints never accept SQL. Query parameters other than limit and all
// name columns, are checked against the table's schema and are bound as
// equality conditions:
//
//	GET /api/v1/tables/table_one/rows?something_not_null=tea
//
// Update and delete without a filter require ?all=true.
//
// # Concurrency
//
// A database handle is single-connection and not safe for concurrent use,
// so the server serialises every handle call behind one mutex.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
