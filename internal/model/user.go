package model

import "time"

// User is a remote account. Its ID is the identity that owns a profile row and
// a set of habit rows.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
