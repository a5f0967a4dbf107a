package application

import "errors"

// Sentinel errors returned by application services.
var (
	// ErrDecode indicates a stored ciphertext is malformed or fails authentication.
	ErrDecode = errors.New("ciphertext could not be decoded")

	// ErrEmptyKey indicates an encrypt or decrypt was attempted with an empty key.
	ErrEmptyKey = errors.New("encryption key is empty")

	// ErrInvalidText indicates a plaintext field is not valid UTF-8.
	ErrInvalidText = errors.New("plaintext is not valid UTF-8")

	// ErrEntryNotFound indicates no credential entry has the requested id.
	ErrEntryNotFound = errors.New("entry not found")

	// ErrNotAuthenticated indicates the session is locked. Driving adapters
	// return it before invoking the credential service.
	ErrNotAuthenticated = errors.New("vault is locked")

	// ErrEmptyCharset indicates password generation was requested with every
	// character class disabled.
	ErrEmptyCharset = errors.New("at least one character set must be enabled")
)
