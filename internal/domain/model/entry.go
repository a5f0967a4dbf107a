package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMissingField is returned by EntryInput.Validate when a required field is blank.
var ErrMissingField = errors.New("required field missing")

// Entry is a stored credential with its password in plaintext. The ciphertext
// form never leaves the credential service.
type Entry struct {
	ID        string
	Title     string
	Username  string
	Password  string
	Website   string
	Notes     string
	Category  string
	OwnerID   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EntryInput carries the caller-supplied fields for a new entry. Website,
// Notes, and Category are optional; empty values are persisted as "" and an
// empty Category falls back to CategoryOther.
type EntryInput struct {
	Title    string
	Username string
	Password string
	Website  string
	Notes    string
	Category string
}

// Validate applies the add-entry form rules: title, username, and password
// must be non-blank.
func (in EntryInput) Validate() error {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return fmt.Errorf("title: %w", ErrMissingField)
	case strings.TrimSpace(in.Username) == "":
		return fmt.Errorf("username: %w", ErrMissingField)
	case strings.TrimSpace(in.Password) == "":
		return fmt.Errorf("password: %w", ErrMissingField)
	}
	return nil
}

// EntryUpdate is a partial update. A nil field is left untouched; a non-nil
// field is written even when it points at "".
type EntryUpdate struct {
	Title    *string
	Username *string
	Password *string
	Website  *string
	Notes    *string
	Category *string
}

// IsEmpty reports whether the update carries no fields.
func (u EntryUpdate) IsEmpty() bool {
	return u.Title == nil && u.Username == nil && u.Password == nil &&
		u.Website == nil && u.Notes == nil && u.Category == nil
}
