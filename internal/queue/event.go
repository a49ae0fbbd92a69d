// Package queue carries audit entries over RabbitMQ: the publisher is the
// audit sink used by request handlers, the consumer drains the queue into
// the audit_logs table.
package queue

import (
	"errors"
	"time"

	"github.com/goccy/go-json"

	"github.com/iliyamo/office-booking/internal/model"
)

// AuditQueueName is the durable queue holding pending audit entries.
const AuditQueueName = "audit.events"

// AuditEvent is the wire form of an audit entry.
type AuditEvent struct {
	ID         string         `json:"id"`
	ActorID    string         `json:"actor_id"`
	Action     string         `json:"action"`
	Details    map[string]any `json:"details,omitempty"`
	OccurredAt string         `json:"occurred_at"`
}

func eventFromEntry(e model.AuditEntry) AuditEvent {
	return AuditEvent{
		ID:         e.ID,
		ActorID:    e.ActorID,
		Action:     e.Action,
		Details:    e.Details,
		OccurredAt: e.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

var errMalformedEvent = errors.New("malformed audit event")

// decodeEvent parses a message body back into an entry.  Events without an
// id, actor or action are rejected.
func decodeEvent(body []byte) (model.AuditEntry, error) {
	var ev AuditEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return model.AuditEntry{}, errors.Join(errMalformedEvent, err)
	}
	if ev.ID == "" || ev.ActorID == "" || ev.Action == "" {
		return model.AuditEntry{}, errMalformedEvent
	}
	at, err := time.Parse(time.RFC3339Nano, ev.OccurredAt)
	if err != nil {
		at = time.Now().UTC()
	}
	return model.AuditEntry{
		ID:        ev.ID,
		ActorID:   ev.ActorID,
		Action:    ev.Action,
		Details:   ev.Details,
		CreatedAt: at,
	}, nil
}
