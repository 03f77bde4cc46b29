// Package ledger provides an append-only audit of commands sent to bridges.
// Only the target and outcome are recorded, never the color values.
package ledger

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog/log"
)

// Entry represents a single command in the ledger
type Entry struct {
	ID        int64
	Bridge    string // bridge address, ip:port
	Method    string
	Address   string // resource address, e.g. /lights/3/state
	Success   bool
	Error     string
	Actor     string // account email, or "script:<file>" for script runs
	Timestamp time.Time
}

// Ledger provides append-only command logging
type Ledger struct {
	db *sql.DB
}

// New creates a new Ledger using the provided database connection
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// Append adds a new entry to the ledger
func (l *Ledger) Append(e Entry) error {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	var errText sql.NullString
	if e.Error != "" {
		errText = sql.NullString{String: e.Error, Valid: true}
	}

	_, err := l.db.Exec(`
		INSERT INTO command_ledger (bridge, method, address, success, error, actor, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.Bridge, e.Method, e.Address, e.Success, errText, e.Actor, ts.UTC().UnixNano())

	return err
}

// RecordCommand appends a command outcome. Failures to write the ledger are
// logged, never returned.
func (l *Ledger) RecordCommand(ctx context.Context, bridge, method, address string, cmdErr error) {
	e := Entry{
		Bridge:  bridge,
		Method:  method,
		Address: address,
		Success: cmdErr == nil,
		Actor:   ActorFromContext(ctx),
	}
	if cmdErr != nil {
		e.Error = cmdErr.Error()
	}

	if err := l.Append(e); err != nil {
		log.Warn().Err(err).Str("bridge", bridge).Str("address", address).Msg("Failed to record command")
	}
}

// Recent returns the newest entries for a bridge
func (l *Ledger) Recent(bridge string, limit int) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, bridge, method, address, success, error, actor, timestamp
		FROM command_ledger
		WHERE bridge = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, bridge, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return l.scanEntries(rows)
}

// DeleteOlderThan removes entries older than the specified duration (retention policy)
func (l *Ledger) DeleteOlderThan(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UTC().UnixNano()
	result, err := l.db.Exec(`
		DELETE FROM command_ledger WHERE timestamp < ?
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (l *Ledger) scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		var entry Entry
		var errText, actor sql.NullString
		var timestamp int64

		err := rows.Scan(
			&entry.ID, &entry.Bridge, &entry.Method, &entry.Address, &entry.Success, &errText, &actor, &timestamp,
		)
		if err != nil {
			return nil, err
		}

		entry.Timestamp = time.Unix(0, timestamp).UTC()
		if errText.Valid {
			entry.Error = errText.String
		}
		if actor.Valid {
			entry.Actor = actor.String
		}

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

type actorKey struct{}

// WithActor tags ctx with the account issuing commands.
func WithActor(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, actorKey{}, email)
}

// ActorFromContext returns the account tagged by WithActor.
func ActorFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	email, _ := ctx.Value(actorKey{}).(string)
	return email
}
