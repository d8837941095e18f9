package models

import (
	"time"
)

// Account is the authentication identity. One Profile exists per Account.
type Account struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	// Internal only - never returned in JSON
	PasswordHash string `db:"password_hash" json:"-"`
}

// Session is the cached copy of an authenticated session held in Redis.
type Session struct {
	Token     string    `json:"-"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
