package application

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ericfisherdev/pinvault/internal/domain/port/driven"
)

// KeySource supplies the installation's encryption key.
type KeySource interface {
	EnsureKey(ctx context.Context) (string, error)
}

var _ KeySource = (*KeyManager)(nil)

// KeyManager owns the lifecycle of the per-installation encryption key. The
// key is created on first use and never regenerated: a new key would make
// every stored password undecryptable.
type KeyManager struct {
	store  driven.SecureStore
	random io.Reader
	group  singleflight.Group
	logger *zap.Logger
}

// NewKeyManager creates a KeyManager backed by store.
func NewKeyManager(store driven.SecureStore, logger *zap.Logger) *KeyManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KeyManager{
		store:  store,
		random: rand.Reader,
		logger: logger,
	}
}

// keyLookupTimeout bounds the shared lookup, which outlives the caller that
// started it.
const keyLookupTimeout = 10 * time.Second

// EnsureKey returns the persisted key, creating it if none exists. Concurrent
// callers in this process share one lookup; callers in other processes are
// reconciled by SecureStore.SetIfAbsent, and the loser adopts the winner's key.
// The shared lookup does not inherit the cancellation of whichever caller
// started it; each caller stops waiting when its own ctx is done.
func (m *KeyManager) EnsureKey(ctx context.Context) (string, error) {
	ch := m.group.DoChan(driven.KeyEncryptionKey, func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), keyLookupTimeout)
		defer cancel()
		return m.ensureKey(lookupCtx)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (m *KeyManager) ensureKey(ctx context.Context) (string, error) {
	key, ok, err := m.store.Get(ctx, driven.KeyEncryptionKey)
	if err != nil {
		return "", fmt.Errorf("read encryption key: %w", err)
	}
	if ok {
		return key, nil
	}

	candidate, err := m.generate()
	if err != nil {
		return "", err
	}

	created, err := m.store.SetIfAbsent(ctx, driven.KeyEncryptionKey, candidate)
	if err != nil {
		return "", fmt.Errorf("store encryption key: %w", err)
	}
	if created {
		m.logger.Info("encryption key created")
		return candidate, nil
	}

	key, ok, err = m.store.Get(ctx, driven.KeyEncryptionKey)
	if err != nil {
		return "", fmt.Errorf("re-read encryption key: %w", err)
	}
	if !ok {
		return "", errors.New("encryption key missing after concurrent create")
	}
	m.logger.Debug("encryption key created concurrently, adopting stored key")
	return key, nil
}

// generate hashes 32 bytes of local entropy into a hex SHA-256 digest.
func (m *KeyManager) generate() (string, error) {
	token := make([]byte, 32)
	if _, err := io.ReadFull(m.random, token); err != nil {
		return "", fmt.Errorf("generate key entropy: %w", err)
	}
	sum := sha256.Sum256(token)
	return hex.EncodeToString(sum[:]), nil
}
