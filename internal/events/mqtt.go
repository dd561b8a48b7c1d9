package events

import (
	"encoding/json"

	"github.com/nerrad567/neosqlite/internal/infrastructure/mqtt"
)

// Publisher is the subset of *mqtt.Client used to publish events.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Logger is the logging surface used by event sinks.
type Logger interface {
	Warn(msg string, args ...any)
}

// MQTTPublisher publishes each event as JSON on
// <prefix>/<database>/<table>/<op>.
type MQTTPublisher struct {
	pub    Publisher
	topics mqtt.Topics
	qos    byte
	logger Logger
}

// NewMQTTPublisher creates a publisher. logger may be nil.
func NewMQTTPublisher(pub Publisher, topics mqtt.Topics, qos byte, logger Logger) *MQTTPublisher {
	return &MQTTPublisher{pub: pub, topics: topics, qos: qos, logger: logger}
}

// Notify publishes e. Publish failures are logged and otherwise ignored:
// the database operation has already completed.
func (p *MQTTPublisher) Notify(e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		p.warn("encoding event", err)
		return
	}

	topic := p.topics.Change(e.Database, e.Table, string(e.Op))
	if err := p.pub.Publish(topic, payload, p.qos, false); err != nil {
		p.warn("publishing event", err, "topic", topic)
	}
}

func (p *MQTTPublisher) warn(msg string, err error, args ...any) {
	if p.logger == nil {
		return
	}
	p.logger.Warn(msg, append([]any{"error", err}, args...)...)
}
