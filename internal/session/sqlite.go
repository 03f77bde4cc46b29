package session

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteStore is a Store backed by the sessions table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed session store.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Put saves a session record.
func (s *SQLiteStore) Put(rec Record) error {
	_, err := s.db.Exec(`
		INSERT INTO sessions (id, email, created_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			expires_at = excluded.expires_at
	`, rec.ID, rec.Email, rec.CreatedAt.UTC().Unix(), rec.ExpiresAt.UTC().Unix())
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Get retrieves a live session by id.
func (s *SQLiteStore) Get(id string) (*Record, error) {
	var rec Record
	var createdAt, expiresAt int64

	err := s.db.QueryRow(`
		SELECT id, email, created_at, expires_at FROM sessions WHERE id = ?
	`, id).Scan(&rec.ID, &rec.Email, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	rec.CreatedAt = time.Unix(createdAt, 0).UTC()
	rec.ExpiresAt = time.Unix(expiresAt, 0).UTC()

	if rec.IsExpired(time.Now()) {
		// Expired - delete and report missing
		_, _ = s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
		return nil, nil
	}

	return &rec, nil
}

// Delete removes a session.
func (s *SQLiteStore) Delete(id string) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}
	affected, _ := result.RowsAffected()
	return affected > 0, nil
}

// DeleteByEmail removes all sessions of one account.
func (s *SQLiteStore) DeleteByEmail(email string) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM sessions WHERE email = ?`, email)
	if err != nil {
		return 0, fmt.Errorf("failed to delete sessions: %w", err)
	}
	return result.RowsAffected()
}

// Purge removes expired sessions.
func (s *SQLiteStore) Purge() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM sessions WHERE expires_at <= ?`, time.Now().UTC().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	return result.RowsAffected()
}
