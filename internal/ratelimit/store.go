package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Bucket is the fixed-window counter for one client key.
type Bucket struct {
	Count       int
	WindowStart time.Time
}

// Store persists buckets by key. The Limiter owns the algorithm; a Store only
// reads and writes state, so it can be an in-process map or a shared server.
//
// Get reports ok=false for an absent key. Range stops early when fn returns false.
type Store interface {
	Get(ctx context.Context, key string) (b Bucket, ok bool, err error)
	Set(ctx context.Context, key string, b Bucket) error
	Delete(ctx context.Context, key string) error
	Range(ctx context.Context, fn func(key string, b Bucket) bool) error
}

// AtomicStore is implemented by stores that can run a whole fixed-window
// step server-side. The Limiter prefers it over Get/Set so that several
// processes sharing the store never lose an update.
type AtomicStore interface {
	Store
	// Hit applies one request to key at now and returns the resulting bucket
	// and whether the request was admitted.
	Hit(ctx context.Context, key string, now time.Time, limit int, window time.Duration) (Bucket, bool, error)
	// DeleteIfStale removes key only if its window started before cutoff, in
	// the same atomic step as the check. It reports whether a bucket was removed.
	DeleteIfStale(ctx context.Context, key string, cutoff time.Time) (bool, error)
}

// MemoryStore is an in-process Store backed by a map.
// Suitable for tests and single-instance deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[string]Bucket
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]Bucket)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Bucket, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.buckets[key]
	return b, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, b Bucket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets[key] = b
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buckets, key)
	return nil
}

// Range iterates over a snapshot, so fn may call Delete or Set without deadlocking.
func (s *MemoryStore) Range(_ context.Context, fn func(key string, b Bucket) bool) error {
	s.mu.RLock()
	snapshot := make(map[string]Bucket, len(s.buckets))
	for k, v := range s.buckets {
		snapshot[k] = v
	}
	s.mu.RUnlock()

	for k, v := range snapshot {
		if !fn(k, v) {
			return nil
		}
	}
	return nil
}

// Len returns the number of stored buckets, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buckets)
}
