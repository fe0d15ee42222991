package kv

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for tests and single-node development.
// TTL return values mirror Redis: -1 for "no expiry", -2 for "absent".
type MemoryStore struct {
	mu      sync.Mutex
	values  map[string]string
	expiry  map[string]time.Time
	nowFunc func() time.Time // injectable clock
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values:  make(map[string]string),
		expiry:  make(map[string]time.Time),
		nowFunc: time.Now,
	}
}

// SetClock overrides the store's clock. Test hook.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFunc = now
}

func (s *MemoryStore) purgeLocked(key string) {
	exp, ok := s.expiry[key]
	if ok && !s.nowFunc().Before(exp) {
		delete(s.values, key)
		delete(s.expiry, key)
	}
}

// IncrWithTTL increments key and reports its TTL as one atomic step.
func (s *MemoryStore) IncrWithTTL(_ context.Context, key string) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(key)

	n, _ := strconv.ParseInt(s.values[key], 10, 64)
	n++
	s.values[key] = strconv.FormatInt(n, 10)

	exp, ok := s.expiry[key]
	if !ok {
		return n, -1, nil
	}
	return n, exp.Sub(s.nowFunc()), nil
}

// Expire binds a TTL to an existing key. Missing keys are a no-op.
func (s *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(key)
	if _, ok := s.values[key]; ok {
		s.expiry[key] = s.nowFunc().Add(ttl)
	}
	return nil
}

// SetNX sets key only if absent.
func (s *MemoryStore) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(key)
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = value
	s.expiry[key] = s.nowFunc().Add(ttl)
	return true, nil
}

// Close is a no-op for the in-process store.
func (s *MemoryStore) Close() error { return nil }
