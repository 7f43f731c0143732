// Package events publishes engine outcomes to NATS so the surrounding
// toolkit's collaborators (dream synthesis, daily logs) can observe trigger
// and satisfaction activity without reading the state file.
package events

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	// DefaultSubjectPrefix namespaces all published subjects.
	DefaultSubjectPrefix = "volition"

	SubjectTriggered = "triggered"
	SubjectSatisfied = "satisfied"
	SubjectReset     = "reset"
)

// Event is the wire shape for every published engine outcome.
type Event struct {
	Drive     string    `json:"drive,omitempty"`
	Pressure  float64   `json:"pressure,omitempty"`
	Threshold float64   `json:"threshold,omitempty"`
	Depth     string    `json:"depth,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	Count     int       `json:"count,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher sends engine events over NATS. A nil Publisher is valid and
// drops everything, so callers never need to branch on whether eventing is
// configured.
type Publisher struct {
	conn   *nats.Conn
	prefix string
}

// Connect establishes the NATS connection. Reconnects are left to the
// client; a drive event lost during an outage is not worth blocking a cycle
// over.
func Connect(url, prefix string) (*Publisher, error) {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}

	conn, err := nats.Connect(url,
		nats.Timeout(5*time.Second),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Printf("[Events] NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[Events] NATS reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Printf("[Events] Publishing engine events to %s (prefix %s)", url, prefix)
	return &Publisher{conn: conn, prefix: prefix}, nil
}

// Publish sends one event on the given subject suffix. Failures are logged,
// not returned: eventing is observability, never part of cycle correctness.
func (p *Publisher) Publish(subject string, ev Event) {
	if p == nil || p.conn == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[Events] Failed to marshal event: %v", err)
		return
	}
	if err := p.conn.Publish(p.prefix+"."+subject, data); err != nil {
		log.Printf("[Events] Failed to publish %s: %v", subject, err)
	}
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	p.conn.Close()
}
