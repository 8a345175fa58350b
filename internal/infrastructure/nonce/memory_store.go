// Package nonce stores single-use OAuth state values between the install
// redirect and the provider callback.
package nonce

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL bounds how long an install attempt may sit between redirect
// and callback.
const DefaultTTL = 10 * time.Minute

type memoryEntry struct {
	shop      string
	expiresAt time.Time
}

// MemoryStore is a process-local state store, used when no Redis address
// is configured.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore creates an in-memory state store with the given TTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) Save(ctx context.Context, state, shop string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpired()
	s.entries[state] = memoryEntry{shop: shop, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Consume(ctx context.Context, state string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[state]
	if !ok {
		return "", false, nil
	}
	delete(s.entries, state)
	if s.now().After(entry.expiresAt) {
		return "", false, nil
	}
	return entry.shop, true, nil
}

// evictExpired drops stale entries; called under the lock.
func (s *MemoryStore) evictExpired() {
	now := s.now()
	for state, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, state)
		}
	}
}
