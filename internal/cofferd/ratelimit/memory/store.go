// Package memory implements rate limit storage with process-local state.
// Counters are not shared across processes; a login attempt completes
// against the same instance that issued its device code, so this is the
// default store for single-instance deployments.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coffersec/coffer/internal/cofferd/ratelimit"
)

type bucket struct {
	windowStart time.Time
	count       int
}

// Store implements fixed-window rate limit storage in memory
type Store struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

// NewStore creates an in-memory rate limit store
func NewStore() *Store {
	return &Store{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// NewStoreWithClock creates a store with an injected clock for tests
func NewStoreWithClock(now func() time.Time) *Store {
	s := NewStore()
	s.now = now
	return s
}

func keyStr(key ratelimit.LimitKey) string {
	return fmt.Sprintf("%s:%s:%s", key.Type, key.DeviceID, key.RemoteIP)
}

// Increment adds one to the counter for key, resetting the window when
// it has elapsed, and returns the count plus the window end time
func (s *Store) Increment(ctx context.Context, key ratelimit.LimitKey, limit ratelimit.Limit) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	k := keyStr(key)

	b, ok := s.buckets[k]
	if !ok || now.Sub(b.windowStart) >= limit.Period {
		b = &bucket{windowStart: now, count: 0}
		s.buckets[k] = b
	}
	b.count++

	return b.count, b.windowStart.Add(limit.Period), nil
}

// Reset clears a rate limit counter
func (s *Store) Reset(ctx context.Context, key ratelimit.LimitKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.buckets, keyStr(key))
	return nil
}

// ResetAll clears every counter. Test hook.
func (s *Store) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buckets = make(map[string]*bucket)
}
