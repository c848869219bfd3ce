package otp

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a concurrency-safe in-memory challenge store for tests.
type MemoryStore struct {
	mu         sync.Mutex
	challenges []Challenge
}

// NewMemoryStore builds an in-memory challenge store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Latest(_ context.Context, ownerID, purpose string) (Challenge, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest Challenge
	found := false
	for _, c := range s.challenges {
		if c.OwnerID != ownerID || c.Purpose != purpose {
			continue
		}
		if !found || c.IssuedAt.After(latest.IssuedAt) {
			latest = c
			found = true
		}
	}
	return latest, found, nil
}

func (s *MemoryStore) Supersede(_ context.Context, c Challenge, notBefore time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.challenges {
		if existing.OwnerID == c.OwnerID && existing.Purpose == c.Purpose && existing.IssuedAt.After(notBefore) {
			// A still-recent challenge holds the scope.
			return false, nil
		}
	}
	kept := s.challenges[:0]
	for _, existing := range s.challenges {
		if existing.OwnerID != c.OwnerID || existing.Purpose != c.Purpose {
			kept = append(kept, existing)
		}
	}
	s.challenges = append(kept, c)
	return true, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.challenges[:0]
	for _, c := range s.challenges {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	s.challenges = kept
	return nil
}

// Count reports the number of stored challenges. Test helper.
func (s *MemoryStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.challenges)
}
