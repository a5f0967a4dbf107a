// Package firestore implements the DocumentStore port over the Cloud
// Firestore REST API (v1).
package firestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ericfisherdev/pinvault/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.DocumentStore = (*Client)(nil)

// DefaultBaseURL is the production Firestore endpoint.
const DefaultBaseURL = "https://firestore.googleapis.com"

// listPageSize is the page size requested from documents.list.
const listPageSize = 300

// Config identifies the Firestore database a Client talks to.
type Config struct {
	ProjectID string
	Database  string // "(default)" when empty.
	APIKey    string // Sent as ?key=; empty sends none.
	BaseURL   string // DefaultBaseURL when empty.
}

// Client is a minimal Firestore REST client covering the document calls the
// vault needs. It performs no retries and no caching.
type Client struct {
	http   *http.Client
	root   string // .../v1/projects/{p}/databases/{d}/documents
	apiKey string
	logger *zap.Logger
}

// APIError is a non-2xx response from Firestore.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("firestore: http %d", e.StatusCode)
	}
	return fmt.Sprintf("firestore: http %d %s: %s", e.StatusCode, e.Status, e.Message)
}

// NewClient creates a Client. httpClient may be nil, in which case a client
// with a 30-second timeout is used.
func NewClient(cfg Config, httpClient *http.Client, logger *zap.Logger) (*Client, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firestore: project id is required")
	}
	if cfg.Database == "" {
		cfg.Database = "(default)"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	root := strings.TrimRight(cfg.BaseURL, "/") + "/v1/projects/" + url.PathEscape(cfg.ProjectID) +
		"/databases/" + url.PathEscape(cfg.Database) + "/documents"

	return &Client{http: httpClient, root: root, apiKey: cfg.APIKey, logger: logger}, nil
}

// value is a Firestore Value restricted to the types the vault stores.
type value struct {
	StringValue    *string `json:"stringValue,omitempty"`
	TimestampValue *string `json:"timestampValue,omitempty"`
}

type document struct {
	Name   string           `json:"name,omitempty"`
	Fields map[string]value `json:"fields"`
}

type listResponse struct {
	Documents     []document `json:"documents"`
	NextPageToken string     `json:"nextPageToken"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Create adds a document with a server-assigned id.
func (c *Client) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	body, err := encodeFields(fields)
	if err != nil {
		return "", err
	}

	var created document
	if err := c.do(ctx, http.MethodPost, c.collectionURL(collection), nil, document{Fields: body}, &created); err != nil {
		return "", fmt.Errorf("create document in %q: %w", collection, err)
	}
	return path.Base(created.Name), nil
}

// Get fetches one document.
func (c *Client) Get(ctx context.Context, collection, id string) (driven.Document, error) {
	var doc document
	if err := c.do(ctx, http.MethodGet, c.documentURL(collection, id), nil, nil, &doc); err != nil {
		if isNotFound(err) {
			return driven.Document{}, driven.ErrDocumentNotFound
		}
		return driven.Document{}, fmt.Errorf("get document %s/%s: %w", collection, id, err)
	}
	return decodeDocument(doc)
}

// List pages through every document in the collection.
func (c *Client) List(ctx context.Context, collection string) ([]driven.Document, error) {
	var docs []driven.Document
	pageToken := ""
	for {
		q := url.Values{}
		q.Set("pageSize", fmt.Sprint(listPageSize))
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}

		var page listResponse
		if err := c.do(ctx, http.MethodGet, c.collectionURL(collection), q, nil, &page); err != nil {
			return nil, fmt.Errorf("list documents in %q: %w", collection, err)
		}

		for _, raw := range page.Documents {
			doc, err := decodeDocument(raw)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	c.logger.Debug("firestore list", zap.String("collection", collection), zap.Int("documents", len(docs)))
	return docs, nil
}

// Update patches only the named fields and requires the document to exist.
func (c *Client) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	body, err := encodeFields(fields)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	slices.Sort(names)

	q := url.Values{}
	for _, name := range names {
		q.Add("updateMask.fieldPaths", name)
	}
	q.Set("currentDocument.exists", "true")

	if err := c.do(ctx, http.MethodPatch, c.documentURL(collection, id), q, document{Fields: body}, nil); err != nil {
		if isNotFound(err) {
			return driven.ErrDocumentNotFound
		}
		return fmt.Errorf("update document %s/%s: %w", collection, id, err)
	}
	return nil
}

// Delete removes a document. Firestore treats deleting a missing document as success.
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	if err := c.do(ctx, http.MethodDelete, c.documentURL(collection, id), nil, nil, nil); err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("delete document %s/%s: %w", collection, id, err)
	}
	return nil
}

func (c *Client) collectionURL(collection string) string {
	return c.root + "/" + url.PathEscape(collection)
}

func (c *Client) documentURL(collection, id string) string {
	return c.collectionURL(collection) + "/" + url.PathEscape(id)
}

// do sends one request. in is JSON-encoded when non-nil; out is decoded from
// a 2xx response when non-nil.
func (c *Client) do(ctx context.Context, method, rawURL string, q url.Values, in, out any) error {
	if q == nil {
		q = url.Values{}
	}
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}
	if len(q) > 0 {
		rawURL += "?" + q.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var er errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&er); err == nil {
			apiErr.Status = er.Error.Status
			apiErr.Message = er.Error.Message
		}
		c.logger.Debug("firestore error response",
			zap.String("method", method),
			zap.Int("status", resp.StatusCode),
			zap.String("reason", apiErr.Status),
		)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func encodeFields(fields map[string]any) (map[string]value, error) {
	out := make(map[string]value, len(fields))
	for name, v := range fields {
		switch v := v.(type) {
		case string:
			out[name] = value{StringValue: &v}
		case time.Time:
			ts := v.UTC().Format(time.RFC3339Nano)
			out[name] = value{TimestampValue: &ts}
		default:
			return nil, fmt.Errorf("field %q: unsupported type %T", name, v)
		}
	}
	return out, nil
}

func decodeDocument(doc document) (driven.Document, error) {
	fields := make(map[string]any, len(doc.Fields))
	for name, v := range doc.Fields {
		switch {
		case v.TimestampValue != nil:
			t, err := time.Parse(time.RFC3339Nano, *v.TimestampValue)
			if err != nil {
				return driven.Document{}, fmt.Errorf("document %s field %q: %w", doc.Name, name, err)
			}
			fields[name] = t
		case v.StringValue != nil:
			fields[name] = *v.StringValue
		}
	}
	return driven.Document{ID: path.Base(doc.Name), Fields: fields}, nil
}
