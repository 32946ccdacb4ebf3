package domain

import "time"

// Project represents a project that contains issues.
type Project struct {
	ID          int64     `json:"id" db:"id"`
	Identifier  string    `json:"identifier" db:"identifier"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`
	Email       *string   `json:"email,omitempty" db:"email"`
	OwnerID     int64     `json:"owner_id" db:"owner_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// SenderAddress returns the project's outgoing address, or fallback when the
// project has none configured.
func (p Project) SenderAddress(fallback string) string {
	if p.Email != nil && *p.Email != "" {
		return *p.Email
	}
	return fallback
}
