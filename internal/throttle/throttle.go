// Package throttle decides when a player's upstream data may be refreshed
// again.
//
// Every Store performs an atomic check-and-set: a Due call that returns true
// has already recorded now as the player's last refresh, whether or not the
// caller's refresh later succeeds. Concurrent callers for the same player see
// at most one true per cooldown window.
package throttle

import (
	"context"
	"sync"
	"time"
)

type Store interface {
	// Due reports whether playerID may be refreshed at now and, if so, marks
	// it refreshed.
	Due(ctx context.Context, playerID string, now time.Time) (bool, error)
	// Clear forgets playerID and reports whether an entry existed.
	Clear(ctx context.Context, playerID string) (bool, error)
}

type MemoryStore struct {
	mu       sync.Mutex
	cooldown time.Duration
	last     map[string]time.Time
}

func NewMemoryStore(cooldown time.Duration) *MemoryStore {
	return &MemoryStore{
		cooldown: cooldown,
		last:     make(map[string]time.Time),
	}
}

func (s *MemoryStore) Due(_ context.Context, playerID string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if last, ok := s.last[playerID]; ok && now.Sub(last) < s.cooldown {
		return false, nil
	}
	s.last[playerID] = now
	return true, nil
}

func (s *MemoryStore) Clear(_ context.Context, playerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.last[playerID]; !ok {
		return false, nil
	}
	delete(s.last, playerID)
	return true, nil
}
