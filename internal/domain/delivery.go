package domain

import "time"

// DeliveryStatus is the terminal state of a single dispatch.
type DeliveryStatus string

const (
	DeliveryStatusDelivered  DeliveryStatus = "delivered"
	DeliveryStatusSuppressed DeliveryStatus = "suppressed"
	DeliveryStatusFailed     DeliveryStatus = "failed"
)

// DeliveryOutcome reports what happened to a composed message.
type DeliveryOutcome struct {
	Attempted bool
	Succeeded bool
	Err       error
	MessageID string
}

// Status collapses the outcome into its terminal state.
func (o DeliveryOutcome) Status() DeliveryStatus {
	switch {
	case o.Succeeded:
		return DeliveryStatusDelivered
	case o.Attempted:
		return DeliveryStatusFailed
	default:
		return DeliveryStatusSuppressed
	}
}

// Delivery is a persisted record of a dispatch outcome.
type Delivery struct {
	ID             int64          `json:"id" db:"id"`
	EventKind      EventKind      `json:"event_kind" db:"event_kind"`
	EntityID       int64          `json:"entity_id" db:"entity_id"`
	MessageID      *string        `json:"message_id,omitempty" db:"message_id"`
	Status         DeliveryStatus `json:"status" db:"status"`
	ErrorMsg       *string        `json:"error_msg,omitempty" db:"error_msg"`
	RecipientCount int            `json:"recipient_count" db:"recipient_count"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
}
