package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/google/uuid"

	"github.com/ericfisherdev/pinvault/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore keeps documents in nested maps keyed by collection and id.
// Returned documents are copies; callers cannot mutate stored state.
type DocumentStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
}

// NewDocumentStore creates an empty DocumentStore.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{collections: make(map[string]map[string]map[string]any)}
}

// Create stores fields under a new UUID.
func (s *DocumentStore) Create(_ context.Context, collection string, fields map[string]any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]map[string]any)
		s.collections[collection] = docs
	}
	docs[id] = maps.Clone(fields)
	return id, nil
}

// Put stores fields under a caller-chosen id, replacing any existing document.
// Tests use it to seed documents written by other owners or clients.
func (s *DocumentStore) Put(collection, id string, fields map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]map[string]any)
		s.collections[collection] = docs
	}
	docs[id] = maps.Clone(fields)
}

// Get returns a copy of the document.
func (s *DocumentStore) Get(_ context.Context, collection, id string) (driven.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fields, ok := s.collections[collection][id]
	if !ok {
		return driven.Document{}, driven.ErrDocumentNotFound
	}
	return driven.Document{ID: id, Fields: maps.Clone(fields)}, nil
}

// List returns copies of every document in the collection.
func (s *DocumentStore) List(_ context.Context, collection string) ([]driven.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := s.collections[collection]
	out := make([]driven.Document, 0, len(docs))
	for id, fields := range docs {
		out = append(out, driven.Document{ID: id, Fields: maps.Clone(fields)})
	}
	return out, nil
}

// Update merges fields into the stored document.
func (s *DocumentStore) Update(_ context.Context, collection, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.collections[collection][id]
	if !ok {
		return driven.ErrDocumentNotFound
	}
	maps.Copy(stored, fields)
	return nil
}

// Delete removes the document if present.
func (s *DocumentStore) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections[collection], id)
	return nil
}
