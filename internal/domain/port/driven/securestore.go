package driven

import (
	"context"
	"errors"
)

// ErrSealKey is returned by SecureStore implementations that seal values at
// rest when a stored value cannot be opened with the configured key.
var ErrSealKey = errors.New("secure store value could not be unsealed")

// Fixed keys of the three values the vault keeps in local secure storage.
const (
	KeyPIN           = "user_pin"
	KeySession       = "is_authenticated"
	KeyEncryptionKey = "password_encryption_key"
)

// SecureStore defines the driven port for the local secure key-value store.
// Each key holds a single scalar with last-writer-wins semantics.
type SecureStore interface {
	// Get returns the value under key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any existing value.
	Set(ctx context.Context, key, value string) error

	// SetIfAbsent stores value only when key has no value yet. It reports
	// whether this call performed the write. Implementations must make the
	// check and the write atomic.
	SetIfAbsent(ctx context.Context, key, value string) (bool, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
