package auth

import (
	"context"
	"sync"
	"time"
)

// VerificationStore holds short-lived secrets by identifier. Expired
// entries behave as missing and are reported as ErrVerificationNotFound.
type VerificationStore interface {
	// Set stores v, replacing any entry with the same identifier.
	Set(ctx context.Context, v Verification) error
	Get(ctx context.Context, identifier string) (Verification, error)
	// Consume returns and removes the entry atomically.
	Consume(ctx context.Context, identifier string) (Verification, error)
	// IncrementAttempts adds one to Attempts atomically and returns the
	// updated entry.
	IncrementAttempts(ctx context.Context, identifier string) (Verification, error)
	Delete(ctx context.Context, identifier string) error
}

// MemoryVerificationStore is a process-local VerificationStore.
type MemoryVerificationStore struct {
	mu    sync.Mutex
	items map[string]Verification
	now   func() time.Time
}

func NewMemoryVerificationStore() *MemoryVerificationStore {
	return &MemoryVerificationStore{items: make(map[string]Verification), now: time.Now}
}

func (s *MemoryVerificationStore) Set(_ context.Context, v Verification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[v.Identifier] = v
	return nil
}

func (s *MemoryVerificationStore) Get(_ context.Context, identifier string) (Verification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(identifier)
}

func (s *MemoryVerificationStore) Consume(_ context.Context, identifier string) (Verification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.lookup(identifier)
	if err != nil {
		return Verification{}, err
	}
	delete(s.items, identifier)
	return v, nil
}

func (s *MemoryVerificationStore) IncrementAttempts(_ context.Context, identifier string) (Verification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.lookup(identifier)
	if err != nil {
		return Verification{}, err
	}
	v.Attempts++
	s.items[identifier] = v
	return v, nil
}

func (s *MemoryVerificationStore) Delete(_ context.Context, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, identifier)
	return nil
}

// lookup must be called with mu held.
func (s *MemoryVerificationStore) lookup(identifier string) (Verification, error) {
	v, ok := s.items[identifier]
	if !ok {
		return Verification{}, ErrVerificationNotFound
	}
	if v.Expired(s.now()) {
		delete(s.items, identifier)
		return Verification{}, ErrVerificationNotFound
	}
	return v, nil
}
