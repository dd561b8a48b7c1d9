package events

import (
	"time"
)

// Op names the kind of handle operation that produced an event.
type Op string

// Operations reported by the database handle.
const (
	OpExecute Op = "execute"
	OpInsert  Op = "insert"
	OpUpdate  Op = "update"
	OpDelete  Op = "delete"
	OpScript  Op = "script"
)

// Event describes one completed mutating operation on a database handle.
// Failed operations are reported too, with ErrorKind set.
type Event struct {
	// Database is the display name of the handle.
	Database string `json:"database"`

	// Table is the target table, empty for raw SQL and scripts.
	Table string `json:"table,omitempty"`

	Op Op `json:"op"`

	// Rows is the number of rows affected as reported by SQLite.
	Rows int64 `json:"rows"`

	Duration time.Duration `json:"duration_ns"`

	// ErrorKind is empty on success, otherwise one of the handle's error
	// kinds ("execution", "table_does_not_exist", ...).
	ErrorKind string `json:"error_kind,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// Failed reports whether the operation returned an error.
func (e Event) Failed() bool {
	return e.ErrorKind != ""
}

// Notifier receives events. Implementations must not block for long:
// Notify runs on the caller's goroutine, inside the handle operation.
type Notifier interface {
	Notify(e Event)
}

// NotifierFunc adapts a plain function to the Notifier interface.
type NotifierFunc func(e Event)

// Notify calls f(e).
func (f NotifierFunc) Notify(e Event) {
	f(e)
}

// Multi fans an event out to several notifiers in order. Nil entries are skipped.
type Multi []Notifier

// Notify delivers e to every notifier in m.
func (m Multi) Notify(e Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(e)
		}
	}
}
