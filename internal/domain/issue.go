package domain

import "time"

// IssueStatus represents the lifecycle state of an issue.
type IssueStatus string

const (
	IssueStatusOpen       IssueStatus = "open"
	IssueStatusInProgress IssueStatus = "in_progress"
	IssueStatusCompleted  IssueStatus = "completed"
	IssueStatusClosed     IssueStatus = "closed"
)

// Issue represents a task within a project.
type Issue struct {
	ID           int64       `json:"id" db:"id"`
	ProjectID    int64       `json:"project_id" db:"project_id"`
	AuthorID     int64       `json:"author_id" db:"author_id"`
	AssignedToID *int64      `json:"assigned_to_id,omitempty" db:"assigned_to_id"`
	Subject      string      `json:"subject" db:"subject"`
	Description  *string     `json:"description,omitempty" db:"description"`
	Status       IssueStatus `json:"status" db:"status"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"`
}

// IsClosed reports whether the issue reached a terminal status.
func (i Issue) IsClosed() bool {
	return i.Status == IssueStatusClosed || i.Status == IssueStatusCompleted
}

// Journal is a recorded change on an issue, such as the note left when it
// was closed.
type Journal struct {
	ID        int64     `json:"id" db:"id"`
	IssueID   int64     `json:"issue_id" db:"issue_id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Notes     *string   `json:"notes,omitempty" db:"notes"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IssueDetails bundles an issue with the records a notification about it
// needs.
type IssueDetails struct {
	Issue    Issue
	Project  Project
	Author   User
	Assignee *User
}
