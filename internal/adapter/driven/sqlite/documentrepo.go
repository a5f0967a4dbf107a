package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/pinvault/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.DocumentStore = (*DocumentRepo)(nil)

// DocumentRepo is the SQLite implementation of the DocumentStore port. Each
// document's fields are kept as one JSON object whose values are tagged with
// their type so timestamps survive the round trip.
type DocumentRepo struct {
	db *DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// fieldValue is the stored form of one document field. Exactly one member is set.
type fieldValue struct {
	String    *string `json:"stringValue,omitempty"`
	Timestamp *string `json:"timestampValue,omitempty"`
}

// Create stores fields under a new UUID.
func (r *DocumentRepo) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	encoded, err := encodeFields(fields)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	const query = `INSERT INTO documents (collection, id, fields) VALUES (?, ?, ?)`
	if _, err := r.db.Writer.ExecContext(ctx, query, collection, id, encoded); err != nil {
		return "", fmt.Errorf("create document in %q: %w", collection, err)
	}
	return id, nil
}

// Get returns the document with the given id.
func (r *DocumentRepo) Get(ctx context.Context, collection, id string) (driven.Document, error) {
	const query = `SELECT fields FROM documents WHERE collection = ? AND id = ?`

	var encoded string
	err := r.db.Reader.QueryRowContext(ctx, query, collection, id).Scan(&encoded)
	if errors.Is(err, sql.ErrNoRows) {
		return driven.Document{}, driven.ErrDocumentNotFound
	}
	if err != nil {
		return driven.Document{}, fmt.Errorf("get document %s/%s: %w", collection, id, err)
	}

	fields, err := decodeFields(encoded)
	if err != nil {
		return driven.Document{}, fmt.Errorf("decode document %s/%s: %w", collection, id, err)
	}
	return driven.Document{ID: id, Fields: fields}, nil
}

// List returns every document in the collection.
func (r *DocumentRepo) List(ctx context.Context, collection string) ([]driven.Document, error) {
	const query = `SELECT id, fields FROM documents WHERE collection = ?`
	rows, err := r.db.Reader.QueryContext(ctx, query, collection)
	if err != nil {
		return nil, fmt.Errorf("list documents in %q: %w", collection, err)
	}
	defer rows.Close()

	var docs []driven.Document
	for rows.Next() {
		var id, encoded string
		if err := rows.Scan(&id, &encoded); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		fields, err := decodeFields(encoded)
		if err != nil {
			return nil, fmt.Errorf("decode document %s/%s: %w", collection, id, err)
		}
		docs = append(docs, driven.Document{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	return docs, nil
}

// Update merges fields into the stored document inside a write transaction.
func (r *DocumentRepo) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update %s/%s: %w", collection, id, err)
	}
	defer func() { _ = tx.Rollback() }()

	var encoded string
	err = tx.QueryRowContext(ctx, `SELECT fields FROM documents WHERE collection = ? AND id = ?`, collection, id).Scan(&encoded)
	if errors.Is(err, sql.ErrNoRows) {
		return driven.ErrDocumentNotFound
	}
	if err != nil {
		return fmt.Errorf("read document %s/%s: %w", collection, id, err)
	}

	stored, err := decodeFields(encoded)
	if err != nil {
		return fmt.Errorf("decode document %s/%s: %w", collection, id, err)
	}
	maps.Copy(stored, fields)

	merged, err := encodeFields(stored)
	if err != nil {
		return err
	}

	const query = `UPDATE documents SET fields = ?, updated_at = CURRENT_TIMESTAMP WHERE collection = ? AND id = ?`
	if _, err := tx.ExecContext(ctx, query, merged, collection, id); err != nil {
		return fmt.Errorf("update document %s/%s: %w", collection, id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update %s/%s: %w", collection, id, err)
	}
	return nil
}

// Delete removes the document if present.
func (r *DocumentRepo) Delete(ctx context.Context, collection, id string) error {
	const query = `DELETE FROM documents WHERE collection = ? AND id = ?`
	if _, err := r.db.Writer.ExecContext(ctx, query, collection, id); err != nil {
		return fmt.Errorf("delete document %s/%s: %w", collection, id, err)
	}
	return nil
}

func encodeFields(fields map[string]any) (string, error) {
	out := make(map[string]fieldValue, len(fields))
	for name, v := range fields {
		switch v := v.(type) {
		case string:
			out[name] = fieldValue{String: &v}
		case time.Time:
			ts := v.UTC().Format(time.RFC3339Nano)
			out[name] = fieldValue{Timestamp: &ts}
		default:
			return "", fmt.Errorf("field %q: unsupported type %T", name, v)
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("marshal fields: %w", err)
	}
	return string(data), nil
}

func decodeFields(encoded string) (map[string]any, error) {
	var raw map[string]fieldValue
	if err := json.Unmarshal([]byte(encoded), &raw); err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}

	fields := make(map[string]any, len(raw))
	for name, v := range raw {
		switch {
		case v.Timestamp != nil:
			t, err := time.Parse(time.RFC3339Nano, *v.Timestamp)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
			fields[name] = t
		case v.String != nil:
			fields[name] = *v.String
		default:
			fields[name] = ""
		}
	}
	return fields, nil
}
