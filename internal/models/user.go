package models

import "time"

// User is a registered account. PasswordHash is never serialized.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Presence states reported in the user list.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// UserStatus is one entry of the broadcast user list: every known username
// tagged with its current presence.
type UserStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}
