package domain

import "time"

// UserStatus represents the account state of a user.
type UserStatus string

const (
	UserStatusActive     UserStatus = "active"
	UserStatusRegistered UserStatus = "registered"
	UserStatusLocked     UserStatus = "locked"
)

// User represents an account that can receive notifications.
type User struct {
	ID             int64      `json:"id" db:"id"`
	Login          string     `json:"login" db:"login"`
	Email          string     `json:"email" db:"email"`
	DisplayName    string     `json:"display_name" db:"display_name"`
	Language       string     `json:"language" db:"language"`
	Admin          bool       `json:"admin" db:"admin"`
	Status         UserStatus `json:"status" db:"status"`
	NoSelfNotified bool       `json:"no_self_notified" db:"no_self_notified"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// Logged reports whether u is a real, signed-in account rather than an
// anonymous placeholder.
func (u *User) Logged() bool {
	return u != nil && u.ID > 0 && u.Login != ""
}

// Actor derives the notification actor for u. A nil user yields a nil actor.
func (u *User) Actor() *Actor {
	if u == nil {
		return nil
	}
	return &Actor{
		ID:                     u.ID,
		Login:                  u.Login,
		Address:                NormalizeAddress(u.Email),
		WantsSelfNotifications: !u.NoSelfNotified,
		LoggedIn:               u.Logged(),
	}
}
