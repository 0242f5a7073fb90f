package userstore

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps users in a map. It is meant for tests and demos.
type MemoryStore struct {
	mu         sync.RWMutex
	byUsername map[string]*User
	now        func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byUsername: map[string]*User{},
		now:        time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, u *User) error {
	clone, err := normalize(u, s.now())
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byUsername[clone.Username]; exists {
		return ErrDuplicate
	}
	s.byUsername[clone.Username] = clone
	return nil
}

func (s *MemoryStore) FindByUsername(_ context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.byUsername[username]; ok {
		clone := *u
		clone.Roles = append([]string(nil), u.Roles...)
		return &clone, nil
	}
	return nil, ErrNotFound
}

// Len returns the number of stored users
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byUsername)
}

func (s *MemoryStore) Close() error { return nil }
