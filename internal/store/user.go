// Package store persists user records in PostgreSQL.
package store

import "time"

// User is the single persisted record of this application, keyed by email.
// It is created on first successful authentication and never updated: name
// changes at the provider are not reflected after first login.
type User struct {
	Email     string
	Name      string
	CreatedAt time.Time
}
