package application

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/ericfisherdev/pinvault/internal/domain/model"
	"github.com/ericfisherdev/pinvault/internal/domain/port/driven"
)

// PasswordsCollection is the document store collection holding entries.
const PasswordsCollection = "passwords"

// Document field names. Every field is always written; optional inputs are
// stored as "" rather than omitted.
const (
	fieldTitle     = "title"
	fieldUsername  = "username"
	fieldPassword  = "password"
	fieldWebsite   = "website"
	fieldNotes     = "notes"
	fieldCategory  = "category"
	fieldUserID    = "userId"
	fieldCreatedAt = "createdAt"
	fieldUpdatedAt = "updatedAt"
)

// CredentialService encrypts credential passwords before they reach the
// document store and decrypts them on the way back. It keeps no state
// between calls; the document store is the system of record. Callers must
// pass the access gate before using it.
type CredentialService struct {
	docs    driven.DocumentStore
	keys    KeySource
	cipher  FieldCipher
	ownerID string
	timeout time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// NewCredentialService creates a CredentialService. New entries are owned by
// ownerID. timeout bounds each document store call; zero disables the bound.
func NewCredentialService(
	docs driven.DocumentStore,
	keys KeySource,
	cipher FieldCipher,
	ownerID string,
	timeout time.Duration,
	logger *zap.Logger,
) *CredentialService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CredentialService{
		docs:    docs,
		keys:    keys,
		cipher:  cipher,
		ownerID: ownerID,
		timeout: timeout,
		now:     time.Now,
		logger:  logger,
	}
}

// OwnerID returns the owner assigned to entries created by this service.
func (s *CredentialService) OwnerID() string {
	return s.ownerID
}

// AddEntry encrypts the password and stores a new entry, returning its id.
func (s *CredentialService) AddEntry(ctx context.Context, in model.EntryInput) (string, error) {
	key, err := s.keys.EnsureKey(ctx)
	if err != nil {
		return "", err
	}

	ciphertext, err := s.cipher.Encrypt(in.Password, key)
	if err != nil {
		return "", fmt.Errorf("encrypt password: %w", err)
	}

	category := in.Category
	if category == "" {
		category = model.CategoryOther
	}

	now := s.now().UTC()
	fields := map[string]any{
		fieldTitle:     in.Title,
		fieldUsername:  in.Username,
		fieldPassword:  ciphertext,
		fieldWebsite:   in.Website,
		fieldNotes:     in.Notes,
		fieldCategory:  category,
		fieldUserID:    s.ownerID,
		fieldCreatedAt: now,
		fieldUpdatedAt: now,
	}

	ctx, cancel := s.remote(ctx)
	defer cancel()

	id, err := s.docs.Create(ctx, PasswordsCollection, fields)
	if err != nil {
		return "", fmt.Errorf("create entry: %w", err)
	}

	s.logger.Debug("entry created", zap.String("id", id), zap.String("category", category))
	return id, nil
}

// ListEntries returns ownerID's entries, most recently updated first. The
// document store is read in bulk and filtered here.
func (s *CredentialService) ListEntries(ctx context.Context, ownerID string) ([]model.Entry, error) {
	key, err := s.keys.EnsureKey(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.remote(ctx)
	defer cancel()

	docs, err := s.docs.List(ctx, PasswordsCollection)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	entries := make([]model.Entry, 0, len(docs))
	for _, doc := range docs {
		if doc.String(fieldUserID) != ownerID {
			continue
		}
		entry, err := s.decode(doc, key)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	slices.SortStableFunc(entries, func(a, b model.Entry) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return entries, nil
}

// GetEntry returns the entry with the given id. A missing entry yields
// ErrEntryNotFound; any other error is a store or decode failure.
func (s *CredentialService) GetEntry(ctx context.Context, id string) (model.Entry, error) {
	key, err := s.keys.EnsureKey(ctx)
	if err != nil {
		return model.Entry{}, err
	}

	doc, err := s.get(ctx, id)
	if err != nil {
		return model.Entry{}, err
	}
	return s.decode(doc, key)
}

// UpdateEntry writes only the fields present in upd and refreshes the update
// timestamp. A present password is re-encrypted; a present but empty password
// is ignored. A present but empty category falls back to CategoryOther.
func (s *CredentialService) UpdateEntry(ctx context.Context, id string, upd model.EntryUpdate) error {
	key, err := s.keys.EnsureKey(ctx)
	if err != nil {
		return err
	}

	fields := make(map[string]any, 7)
	setIfPresent(fields, fieldTitle, upd.Title)
	setIfPresent(fields, fieldUsername, upd.Username)
	setIfPresent(fields, fieldWebsite, upd.Website)
	setIfPresent(fields, fieldNotes, upd.Notes)
	if upd.Category != nil {
		category := *upd.Category
		if category == "" {
			category = model.CategoryOther
		}
		fields[fieldCategory] = category
	}
	if upd.Password != nil && *upd.Password != "" {
		ciphertext, err := s.cipher.Encrypt(*upd.Password, key)
		if err != nil {
			return fmt.Errorf("encrypt password: %w", err)
		}
		fields[fieldPassword] = ciphertext
	}

	current, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	fields[fieldUpdatedAt] = s.nextUpdatedAt(current)

	ctx, cancel := s.remote(ctx)
	defer cancel()

	if err := s.docs.Update(ctx, PasswordsCollection, id, fields); err != nil {
		if errors.Is(err, driven.ErrDocumentNotFound) {
			return fmt.Errorf("update entry %q: %w", id, ErrEntryNotFound)
		}
		return fmt.Errorf("update entry %q: %w", id, err)
	}
	return nil
}

// DeleteEntry removes the entry. Deleting a missing id succeeds.
func (s *CredentialService) DeleteEntry(ctx context.Context, id string) error {
	ctx, cancel := s.remote(ctx)
	defer cancel()

	if err := s.docs.Delete(ctx, PasswordsCollection, id); err != nil {
		return fmt.Errorf("delete entry %q: %w", id, err)
	}
	s.logger.Debug("entry deleted", zap.String("id", id))
	return nil
}

func (s *CredentialService) get(ctx context.Context, id string) (driven.Document, error) {
	ctx, cancel := s.remote(ctx)
	defer cancel()

	doc, err := s.docs.Get(ctx, PasswordsCollection, id)
	if errors.Is(err, driven.ErrDocumentNotFound) {
		return driven.Document{}, fmt.Errorf("get entry %q: %w", id, ErrEntryNotFound)
	}
	if err != nil {
		return driven.Document{}, fmt.Errorf("get entry %q: %w", id, err)
	}
	return doc, nil
}

// nextUpdatedAt returns now, or 1ms past the stored update time when the
// clock has not moved beyond it.
func (s *CredentialService) nextUpdatedAt(current driven.Document) time.Time {
	now := s.now().UTC()
	if prev, ok := current.Fields[fieldUpdatedAt].(time.Time); ok && !now.After(prev) {
		return prev.Add(time.Millisecond)
	}
	return now
}

func (s *CredentialService) decode(doc driven.Document, key string) (model.Entry, error) {
	password, err := s.cipher.Decrypt(doc.String(fieldPassword), key)
	if err != nil {
		return model.Entry{}, fmt.Errorf("decrypt entry %q: %w", doc.ID, err)
	}

	createdAt, _ := doc.Fields[fieldCreatedAt].(time.Time)
	updatedAt, _ := doc.Fields[fieldUpdatedAt].(time.Time)

	return model.Entry{
		ID:        doc.ID,
		Title:     doc.String(fieldTitle),
		Username:  doc.String(fieldUsername),
		Password:  password,
		Website:   doc.String(fieldWebsite),
		Notes:     doc.String(fieldNotes),
		Category:  doc.String(fieldCategory),
		OwnerID:   doc.String(fieldUserID),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

func (s *CredentialService) remote(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func setIfPresent(fields map[string]any, name string, v *string) {
	if v != nil {
		fields[name] = *v
	}
}
