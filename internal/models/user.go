package models

// User represents a user account.
type User struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	HashedPassword string `json:"-"`
	IsActive       bool   `json:"is_active"`
}

// NewUser holds the fields supplied when creating a user.
// A nil IsActive means the flag was omitted, which creates an active user.
type NewUser struct {
	Name           string
	Email          string
	HashedPassword string
	IsActive       *bool
}
