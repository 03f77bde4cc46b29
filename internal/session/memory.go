package session

import (
	"sync"
	"time"
)

// MemoryStore is an in-memory Store (not persisted).
type MemoryStore struct {
	records map[string]Record
	mu      sync.Mutex
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

// Put saves a session record.
func (s *MemoryStore) Put(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[rec.ID] = rec
	return nil
}

// Get retrieves a live session by id.
func (s *MemoryStore) Get(id string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	if rec.IsExpired(time.Now()) {
		// Lazy deletion of expired entry
		delete(s.records, id)
		return nil, nil
	}
	return &rec, nil
}

// Delete removes a session.
func (s *MemoryStore) Delete(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.records[id]
	delete(s.records, id)
	return ok, nil
}

// DeleteByEmail removes all sessions of one account.
func (s *MemoryStore) DeleteByEmail(email string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, rec := range s.records {
		if rec.Email == email {
			delete(s.records, id)
			n++
		}
	}
	return n, nil
}

// Purge removes expired sessions.
func (s *MemoryStore) Purge() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var n int64
	for id, rec := range s.records {
		if rec.IsExpired(now) {
			delete(s.records, id)
			n++
		}
	}
	return n, nil
}
