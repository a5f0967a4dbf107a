package memory

import (
	"context"
	"sync"

	"github.com/ericfisherdev/pinvault/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SecureStore = (*SecureStore)(nil)

// SecureStore is a mutex-guarded map implementing driven.SecureStore.
type SecureStore struct {
	mu    sync.Mutex
	items map[string]string
}

// NewSecureStore creates an empty SecureStore.
func NewSecureStore() *SecureStore {
	return &SecureStore{items: make(map[string]string)}
}

// Get returns the value under key.
func (s *SecureStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	return v, ok, nil
}

// Set stores value under key.
func (s *SecureStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
	return nil
}

// SetIfAbsent stores value only if key is unset.
func (s *SecureStore) SetIfAbsent(_ context.Context, key, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[key]; ok {
		return false, nil
	}
	s.items[key] = value
	return true, nil
}

// Delete removes key.
func (s *SecureStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}
