package driven

import (
	"context"
	"errors"
)

// ErrDocumentNotFound is returned by DocumentStore.Get and DocumentStore.Update
// when no document has the given id.
var ErrDocumentNotFound = errors.New("document not found")

// Document is a flat mapping of field name to value as held by the document
// store. Values are either string or time.Time.
type Document struct {
	ID     string
	Fields map[string]any
}

// String returns the string field name, or "" when it is absent or not a string.
func (d Document) String(name string) string {
	s, _ := d.Fields[name].(string)
	return s
}

// DocumentStore defines the driven port for the document store that is the
// system of record for credential entries. It performs no filtering or
// ordering; callers do both.
type DocumentStore interface {
	// Create stores a new document and returns its generated id.
	Create(ctx context.Context, collection string, fields map[string]any) (string, error)

	// Get returns the document with the given id, or ErrDocumentNotFound.
	Get(ctx context.Context, collection, id string) (Document, error)

	// List returns every document in the collection in no particular order.
	List(ctx context.Context, collection string) ([]Document, error)

	// Update merges fields into an existing document. Fields not named are left
	// untouched. Returns ErrDocumentNotFound if the document does not exist.
	Update(ctx context.Context, collection, id string, fields map[string]any) error

	// Delete removes the document. Deleting a missing id is not an error.
	Delete(ctx context.Context, collection, id string) error
}
