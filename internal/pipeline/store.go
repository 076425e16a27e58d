package pipeline

import (
	"context"
	"sync"
	"time"
)

// JobStore keeps the latest snapshot of every job for status polling.
type JobStore interface {
	Save(ctx context.Context, snap JobSnapshot) error
	// Get returns the snapshot and false if the job is unknown or expired.
	Get(ctx context.Context, id string) (JobSnapshot, bool, error)
	// Cleanup drops expired jobs. Stores that expire on their own may no-op.
	Cleanup(ctx context.Context) error
}

// MemoryStore is a thread-safe in-memory job registry with TTL eviction.
type MemoryStore struct {
	mu   sync.Mutex
	jobs map[string]JobSnapshot
	ttl  time.Duration
	now  func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		jobs: make(map[string]JobSnapshot),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (s *MemoryStore) Save(_ context.Context, snap JobSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[snap.ID] = snap
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (JobSnapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.jobs[id]
	return snap, ok, nil
}

// Cleanup removes expired jobs.
func (s *MemoryStore) Cleanup(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, snap := range s.jobs {
		if now.Sub(snap.UpdatedAt) > s.ttl {
			delete(s.jobs, id)
		}
	}
	return nil
}
