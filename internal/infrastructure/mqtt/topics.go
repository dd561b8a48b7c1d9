package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "neosqlite"

// noTable stands in for the table segment of events from raw SQL and scripts.
const noTable = "_"

// Topics provides builders for neosqlite MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{Prefix: "neosqlite"}
//	topics.Change("inventory", "table_one", "insert")
//	// Returns: "neosqlite/inventory/table_one/insert"
type Topics struct {
	// Prefix is the first topic level. Empty means DefaultTopicPrefix.
	Prefix string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return t.Prefix
}

// Change returns the topic for a change event on one table.
// An empty table maps to "_".
//
// Example: neosqlite/inventory/table_one/delete
func (t Topics) Change(database, table, op string) string {
	if table == "" {
		table = noTable
	}
	return fmt.Sprintf("%s/%s/%s/%s", t.prefix(), segment(database), segment(table), segment(op))
}

// Status returns the retained online/offline status topic.
//
// Example: neosqlite/system/status
func (t Topics) Status() string {
	return fmt.Sprintf("%s/system/status", t.prefix())
}

// AllChanges returns a pattern matching every change event of one database.
//
// Pattern: neosqlite/inventory/+/+
func (t Topics) AllChanges(database string) string {
	return fmt.Sprintf("%s/%s/+/+", t.prefix(), segment(database))
}

// AllTopics returns a pattern matching all neosqlite topics.
//
// Pattern: neosqlite/#
func (t Topics) AllTopics() string {
	return t.prefix() + "/#"
}

// segmentReplacer neutralises characters with meaning in MQTT topic filters.
var segmentReplacer = strings.NewReplacer("/", "_", "+", "_", "#", "_")

// segment makes a name safe to use as a single topic level.
func segment(s string) string {
	if s == "" {
		return noTable
	}
	return segmentReplacer.Replace(s)
}
