package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/simplecom/checkout/internal/checkout"
)

type memoryEntry struct {
	snapshot  checkout.Snapshot
	expiresAt time.Time
}

// MemoryStore is a process-local Store. Expired entries are swept on Save
// at most once per ttl.
type MemoryStore struct {
	mu        sync.Mutex
	ttl       time.Duration
	now       func() time.Time
	entries   map[string]memoryEntry
	nextSweep time.Time
}

// NewMemoryStore creates a store whose entries expire after ttl
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

// Load returns the snapshot for id
func (s *MemoryStore) Load(_ context.Context, id string) (checkout.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return checkout.Snapshot{}, ErrNotFound
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, id)
		return checkout.Snapshot{}, ErrNotFound
	}
	return entry.snapshot, nil
}

// Save stores the snapshot for id and refreshes its expiry
func (s *MemoryStore) Save(_ context.Context, id string, snapshot checkout.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !now.Before(s.nextSweep) {
		s.sweep(now)
	}
	s.entries[id] = memoryEntry{snapshot: snapshot, expiresAt: now.Add(s.ttl)}
	return nil
}

func (s *MemoryStore) sweep(now time.Time) {
	for id, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, id)
		}
	}
	s.nextSweep = now.Add(s.ttl)
}

type memoryLock struct {
	token     string
	expiresAt time.Time
}

// MemoryGuard is a process-local Guard
type MemoryGuard struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	held map[string]memoryLock
}

// NewMemoryGuard creates a guard whose locks lapse after ttl
func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	return &MemoryGuard{
		ttl:  ttl,
		now:  time.Now,
		held: make(map[string]memoryLock),
	}
}

// Acquire takes the lock for key. Returns false if it is already held.
func (g *MemoryGuard) Acquire(_ context.Context, key string) (string, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if lock, ok := g.held[key]; ok && g.now().Before(lock.expiresAt) {
		return "", false, nil
	}
	token := uuid.NewString()
	g.held[key] = memoryLock{token: token, expiresAt: g.now().Add(g.ttl)}
	return token, true, nil
}

// Release drops the lock for key if token still holds it
func (g *MemoryGuard) Release(_ context.Context, key, token string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if lock, ok := g.held[key]; ok && lock.token == token {
		delete(g.held, key)
	}
	return nil
}
