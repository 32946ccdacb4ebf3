package domain

import (
	"fmt"
	"time"
)

// EventKind represents the kind of domain event that triggers an email.
type EventKind string

const (
	EventIssueCreated               EventKind = "issue_created"
	EventIssueClosed                EventKind = "issue_closed"
	EventAccountActivationRequested EventKind = "account_activation_requested"
	EventAccountActivated           EventKind = "account_activated"
	EventTestMessage                EventKind = "test_message"
)

// Valid reports whether k is a known event kind.
func (k EventKind) Valid() bool {
	switch k {
	case EventIssueCreated, EventIssueClosed, EventAccountActivationRequested,
		EventAccountActivated, EventTestMessage:
		return true
	}
	return false
}

// NotificationEvent is a domain event consumed once by the dispatcher.
type NotificationEvent struct {
	Kind            EventKind         `json:"kind"`
	SubjectEntityID int64             `json:"entity_id"`
	ActorID         int64             `json:"actor_id,omitempty"`
	OccurredAt      time.Time         `json:"occurred_at"`
	Payload         map[string]string `json:"payload,omitempty"`
}

// NewNotificationEvent returns an event stamped with the current time. The
// payload is copied so later changes by the caller do not leak in.
func NewNotificationEvent(kind EventKind, entityID, actorID int64, payload map[string]string) NotificationEvent {
	var p map[string]string
	if len(payload) > 0 {
		p = make(map[string]string, len(payload))
		for k, v := range payload {
			p[k] = v
		}
	}
	return NotificationEvent{
		Kind:            kind,
		SubjectEntityID: entityID,
		ActorID:         actorID,
		OccurredAt:      time.Now().UTC(),
		Payload:         p,
	}
}

// Validate checks the event shape before it is routed.
func (e NotificationEvent) Validate() error {
	if !e.Kind.Valid() {
		return fmt.Errorf("%w: unknown event kind %q", ErrInvalidInput, e.Kind)
	}
	if e.SubjectEntityID <= 0 {
		return &ValidationError{Field: "entity_id", Message: "must be positive"}
	}
	return nil
}
