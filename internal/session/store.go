// Package session issues and validates login sessions for the web UI.
package session

import "time"

// Record is a live session.
type Record struct {
	ID        string
	Email     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsExpired returns true if the session has expired.
func (r *Record) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Store persists session records.
type Store interface {
	// Put saves a session record, replacing any record with the same ID.
	Put(rec Record) error

	// Get returns the record for id, or nil if it doesn't exist or has expired.
	Get(id string) (*Record, error)

	// Delete removes a session. Returns true if it existed.
	Delete(id string) (bool, error)

	// DeleteByEmail removes all sessions of one account.
	DeleteByEmail(email string) (int64, error)

	// Purge removes expired records and returns how many were removed.
	Purge() (int64, error)
}
