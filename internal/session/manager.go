package session

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrInvalidToken is returned for tokens that are malformed, expired,
// badly signed or revoked.
var ErrInvalidToken = errors.New("invalid session token")

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Manager issues signed session tokens and tracks which are still live.
// A token is valid only while its id is present in the Store, so logging out
// revokes it before it expires.
type Manager struct {
	store  Store
	secret []byte
	ttl    time.Duration

	cleanupStop    chan struct{}
	cleanupStopped chan struct{}
}

// NewManager creates a session manager. An empty secret generates a random
// key, which invalidates all sessions on restart.
func NewManager(store Store, secret string, ttl time.Duration) (*Manager, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
		log.Warn().Msg("No session secret configured, sessions will not survive a restart")
	}

	return &Manager{
		store:  store,
		secret: key,
		ttl:    ttl,
	}, nil
}

// TTL returns the session lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue starts a session for email and returns its signed token.
func (m *Manager) Issue(email string) (string, error) {
	now := time.Now()
	rec := Record{
		ID:        uuid.NewString(),
		Email:     email,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        rec.ID,
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(rec.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(rec.ExpiresAt),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	if err := m.store.Put(rec); err != nil {
		return "", err
	}

	log.Debug().Str("email", email).Str("session", rec.ID).Msg("Session issued")
	return signed, nil
}

// Validate returns the live session behind token.
func (m *Manager) Validate(token string) (*Record, error) {
	c, err := m.parse(token)
	if err != nil {
		return nil, err
	}

	rec, err := m.store.Get(c.ID)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.Email != c.Email {
		return nil, ErrInvalidToken
	}
	return rec, nil
}

// Revoke ends the session behind token.
func (m *Manager) Revoke(token string) error {
	c, err := m.parse(token)
	if err != nil {
		return err
	}
	if _, err := m.store.Delete(c.ID); err != nil {
		return err
	}
	log.Debug().Str("email", c.Email).Str("session", c.ID).Msg("Session revoked")
	return nil
}

// RevokeAll ends every session of an account.
func (m *Manager) RevokeAll(email string) error {
	n, err := m.store.DeleteByEmail(email)
	if err != nil {
		return err
	}
	log.Debug().Str("email", email).Int64("count", n).Msg("Sessions revoked")
	return nil
}

func (m *Manager) parse(token string) (*claims, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.ID == "" {
		return nil, ErrInvalidToken
	}
	return &c, nil
}

// StartCleanup starts a background goroutine that periodically purges expired sessions.
func (m *Manager) StartCleanup(ctx context.Context, interval time.Duration) {
	m.cleanupStop = make(chan struct{})
	m.cleanupStopped = make(chan struct{})

	go func() {
		defer close(m.cleanupStopped)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-m.cleanupStop:
				return
			case <-ticker.C:
				m.cleanup()
			}
		}
	}()

	log.Debug().Dur("interval", interval).Msg("Started session cleanup goroutine")
}

// StopCleanup stops the background cleanup goroutine.
func (m *Manager) StopCleanup() {
	if m.cleanupStop != nil {
		close(m.cleanupStop)
		<-m.cleanupStopped
		m.cleanupStop = nil
		log.Debug().Msg("Stopped session cleanup goroutine")
	}
}

func (m *Manager) cleanup() {
	count, err := m.store.Purge()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to purge expired sessions")
	} else if count > 0 {
		log.Debug().Int64("count", count).Msg("Purged expired sessions")
	}
}
