// Package users is the data-access layer for user accounts.
package users

import "time"

// User represents a registered account.
// Users are created at signup and never updated or deleted afterwards.
type User struct {
	ID             int64
	Name           string
	Email          string
	HashedPassword string // Do not expose; bcrypt (or legacy SHA-256 hex) digest
	CreatedAt      time.Time
}
