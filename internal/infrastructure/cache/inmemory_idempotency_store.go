package cache

import (
	"context"
	"sync"
	"time"

	"github.com/erp/receiving/internal/domain/shared"
)

// sweepEvery is how many marks pass between sweeps of expired keys.
const sweepEvery = 256

// InMemoryIdempotencyStore keeps commit keys in a map with per-key expiry.
// Duplicates are only detected within one process.
type InMemoryIdempotencyStore struct {
	mu      sync.Mutex
	expires map[string]time.Time
	marks   int
	now     func() time.Time
}

// InMemoryOption configures an InMemoryIdempotencyStore
type InMemoryOption func(*InMemoryIdempotencyStore)

// WithStoreClock replaces time.Now, for tests.
func WithStoreClock(now func() time.Time) InMemoryOption {
	return func(s *InMemoryIdempotencyStore) { s.now = now }
}

// NewInMemoryIdempotencyStore returns an empty store. Expired keys are dropped
// lazily as new keys are marked.
func NewInMemoryIdempotencyStore(opts ...InMemoryOption) *InMemoryIdempotencyStore {
	s := &InMemoryIdempotencyStore{
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MarkProcessed returns true when key was free (absent or expired) and is now held for ttl.
func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if exp, ok := s.expires[key]; ok && now.Before(exp) {
		return false, nil
	}
	s.expires[key] = now.Add(ttl)

	s.marks++
	if s.marks%sweepEvery == 0 {
		s.sweepLocked(now)
	}
	return true, nil
}

func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.expires[key]
	return ok && s.now().Before(exp), nil
}

func (s *InMemoryIdempotencyStore) Forget(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.expires, key)
	s.mu.Unlock()
	return nil
}

// Close drops all keys.
func (s *InMemoryIdempotencyStore) Close() error {
	s.mu.Lock()
	clear(s.expires)
	s.mu.Unlock()
	return nil
}

// Size returns the number of keys held, expired ones included until swept.
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.expires)
}

func (s *InMemoryIdempotencyStore) sweep() {
	s.mu.Lock()
	s.sweepLocked(s.now())
	s.mu.Unlock()
}

func (s *InMemoryIdempotencyStore) sweepLocked(now time.Time) {
	for key, exp := range s.expires {
		if !now.Before(exp) {
			delete(s.expires, key)
		}
	}
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
