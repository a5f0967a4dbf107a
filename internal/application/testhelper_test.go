package application

import (
	"context"
	"errors"
	"sync"

	"github.com/ericfisherdev/pinvault/internal/domain/port/driven"
)

var errStoreDown = errors.New("keychain unavailable")

// failingSecureStore fails every operation whose name is flagged.
type failingSecureStore struct {
	driven.SecureStore
	failGet, failSet, failDelete bool
}

func (s *failingSecureStore) Get(ctx context.Context, key string) (string, bool, error) {
	if s.failGet {
		return "", false, errStoreDown
	}
	return s.SecureStore.Get(ctx, key)
}

func (s *failingSecureStore) Set(ctx context.Context, key, value string) error {
	if s.failSet {
		return errStoreDown
	}
	return s.SecureStore.Set(ctx, key, value)
}

func (s *failingSecureStore) Delete(ctx context.Context, key string) error {
	if s.failDelete {
		return errStoreDown
	}
	return s.SecureStore.Delete(ctx, key)
}

// racingSecureStore reports the key as absent to every Get until released,
// so concurrent KeyManagers all reach SetIfAbsent.
type racingSecureStore struct {
	driven.SecureStore
	mu      sync.Mutex
	hideKey bool
}

func (s *racingSecureStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	hide := s.hideKey
	s.mu.Unlock()
	if hide && key == driven.KeyEncryptionKey {
		return "", false, nil
	}
	return s.SecureStore.Get(ctx, key)
}

func (s *racingSecureStore) SetIfAbsent(ctx context.Context, key, value string) (bool, error) {
	created, err := s.SecureStore.SetIfAbsent(ctx, key, value)
	s.mu.Lock()
	s.hideKey = false
	s.mu.Unlock()
	return created, err
}

// gatedSecureStore blocks every Get until release is closed or the call's
// ctx is done. entered is closed when the first Get arrives.
type gatedSecureStore struct {
	driven.SecureStore
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedSecureStore(base driven.SecureStore) *gatedSecureStore {
	return &gatedSecureStore{SecureStore: base, entered: make(chan struct{}), release: make(chan struct{})}
}

func (s *gatedSecureStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.once.Do(func() { close(s.entered) })
	select {
	case <-s.release:
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
	return s.SecureStore.Get(ctx, key)
}

// staticKey is a KeySource returning a fixed key.
type staticKey string

func (k staticKey) EnsureKey(context.Context) (string, error) { return string(k), nil }

// errorKey is a KeySource that always fails.
type errorKey struct{ err error }

func (k errorKey) EnsureKey(context.Context) (string, error) { return "", k.err }
