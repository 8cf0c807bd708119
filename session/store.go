package session

import (
	"context"
	"sync"
	"time"
)

// Record is the operator-facing mirror of a session. The registry is
// authoritative; records exist so an operator can see what a booth
// instance is holding without attaching a debugger.
type Record struct {
	SessionID      string    `json:"session_id"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	CaptureCount   int64     `json:"capture_count"`
}

// Store defines the interface for session record mirroring.
type Store interface {
	// Save stores or replaces a record.
	Save(ctx context.Context, rec *Record) error
	// Get retrieves a record by session id; (nil, nil) when absent.
	Get(ctx context.Context, sessionID string) (*Record, error)
	// Delete removes a record.
	Delete(ctx context.Context, sessionID string) error
	// Touch refreshes the record's lifetime in the store.
	Touch(ctx context.Context, sessionID string) error
}

// MemoryStore is the default Store: a process-local map. It never
// expires anything on its own; the sweeper's Destroy is what removes
// records, matching the registry's ownership of session lifetime.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

func (s *MemoryStore) Save(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.records[rec.SessionID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[sessionID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, sessionID)
	return nil
}

func (s *MemoryStore) Touch(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[sessionID]; ok {
		rec.LastActivityAt = time.Now()
	}
	return nil
}
