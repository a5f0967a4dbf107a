package sqlite

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/ericfisherdev/pinvault/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SecureStore = (*SecureStore)(nil)

// SecureStore is the SQLite implementation of the SecureStore port. When a
// sealing key is configured, values are encrypted with AES-256-GCM before
// write and decrypted after read.
type SecureStore struct {
	db  *DB
	key []byte // 32-byte AES-256 key; nil stores values as given.
}

// NewSecureStore creates a SecureStore. key must be 32 bytes, or nil to store
// values unsealed.
func NewSecureStore(db *DB, key []byte) *SecureStore {
	return &SecureStore{db: db, key: key}
}

// Get returns the value stored under key.
func (s *SecureStore) Get(ctx context.Context, key string) (string, bool, error) {
	const query = `SELECT value, sealed FROM secure_items WHERE key = ?`

	var stored string
	var sealed bool
	err := s.db.Reader.QueryRowContext(ctx, query, key).Scan(&stored, &sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get secure item %q: %w", key, err)
	}

	if !sealed {
		return stored, true, nil
	}
	value, err := s.open(stored)
	if err != nil {
		return "", false, fmt.Errorf("get secure item %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores or replaces the value under key.
func (s *SecureStore) Set(ctx context.Context, key, value string) error {
	stored, sealed, err := s.seal(value)
	if err != nil {
		return err
	}

	const query = `INSERT OR REPLACE INTO secure_items (key, value, sealed, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)`
	if _, err := s.db.Writer.ExecContext(ctx, query, key, stored, sealed); err != nil {
		return fmt.Errorf("set secure item %q: %w", key, err)
	}
	return nil
}

// SetIfAbsent inserts value only when key has no row yet.
func (s *SecureStore) SetIfAbsent(ctx context.Context, key, value string) (bool, error) {
	stored, sealed, err := s.seal(value)
	if err != nil {
		return false, err
	}

	const query = `INSERT OR IGNORE INTO secure_items (key, value, sealed, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)`
	res, err := s.db.Writer.ExecContext(ctx, query, key, stored, sealed)
	if err != nil {
		return false, fmt.Errorf("set secure item %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set secure item %q: %w", key, err)
	}
	return n == 1, nil
}

// Delete removes the value under key.
func (s *SecureStore) Delete(ctx context.Context, key string) error {
	const query = `DELETE FROM secure_items WHERE key = ?`
	if _, err := s.db.Writer.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("delete secure item %q: %w", key, err)
	}
	return nil
}

// seal returns the value to store and whether it was encrypted. The stored
// form is base64 of nonce (12 bytes) || ciphertext || tag.
func (s *SecureStore) seal(value string) (string, bool, error) {
	if s.key == nil {
		return value, false, nil
	}

	gcm, err := s.gcm()
	if err != nil {
		return "", false, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", false, fmt.Errorf("rand nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(value), nil)
	return base64.StdEncoding.EncodeToString(sealed), true, nil
}

func (s *SecureStore) open(encoded string) (string, error) {
	if s.key == nil {
		return "", fmt.Errorf("%w: no sealing key configured", driven.ErrSealKey)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: base64 decode: %v", driven.ErrSealKey, err)
	}

	gcm, err := s.gcm()
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("%w: sealed value too short", driven.ErrSealKey)
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", driven.ErrSealKey, err)
	}
	return string(plaintext), nil
}

func (s *SecureStore) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return gcm, nil
}
