package domain

import "errors"

var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("resource conflict")

	// ErrMissingTimestamp is returned when an entity has neither a creation
	// nor an update timestamp to derive a message identifier from.
	ErrMissingTimestamp = errors.New("entity has no timestamp")
	// ErrDelivery wraps any failure reported by a mail transport.
	ErrDelivery = errors.New("mail delivery failed")
)

// ValidationError represents a field-level validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
