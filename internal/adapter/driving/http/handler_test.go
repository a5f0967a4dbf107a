package httphandler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/pinvault/internal/adapter/driven/biometric"
	"github.com/ericfisherdev/pinvault/internal/adapter/driven/memory"
	httphandler "github.com/ericfisherdev/pinvault/internal/adapter/driving/http"
	"github.com/ericfisherdev/pinvault/internal/application"
	"github.com/ericfisherdev/pinvault/internal/domain/model"
	"github.com/ericfisherdev/pinvault/internal/domain/port/driven"
)

const owner = "default_user"

// --- Fakes ---

// brokenDocumentStore fails every call as an unreachable remote would.
type brokenDocumentStore struct{}

var errUnreachable = errors.New("dial tcp: connection refused")

func (brokenDocumentStore) Create(context.Context, string, map[string]any) (string, error) {
	return "", errUnreachable
}
func (brokenDocumentStore) Get(context.Context, string, string) (driven.Document, error) {
	return driven.Document{}, errUnreachable
}
func (brokenDocumentStore) List(context.Context, string) ([]driven.Document, error) {
	return nil, errUnreachable
}
func (brokenDocumentStore) Update(context.Context, string, string, map[string]any) error {
	return errUnreachable
}
func (brokenDocumentStore) Delete(context.Context, string, string) error { return errUnreachable }

// brokenSecureStore fails every read.
type brokenSecureStore struct{ driven.SecureStore }

func (brokenSecureStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("keychain locked")
}

// --- Helpers ---

type testEnv struct {
	handler http.Handler
	gate    *application.AccessGate
	creds   *application.CredentialService
	docs    *memory.DocumentStore
	bio     *biometric.Static
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	secure := memory.NewSecureStore()
	docs := memory.NewDocumentStore()
	return buildEnv(secure, docs, docs)
}

func buildEnv(secure driven.SecureStore, docs driven.DocumentStore, mem *memory.DocumentStore) *testEnv {
	bio := biometric.Unavailable()
	gate := application.NewAccessGate(secure, bio, nil)
	creds := application.NewCredentialService(docs, application.NewKeyManager(secure, nil), application.XORCipher{}, owner, time.Second, nil)
	h := httphandler.NewHandler(gate, creds, nil)
	return &testEnv{
		handler: httphandler.NewRouter(h, httphandler.RouterOptions{CORSOrigins: []string{"http://localhost:3000"}}, nil),
		gate:    gate,
		creds:   creds,
		docs:    mem,
		bio:     bio,
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) unlock(t *testing.T) {
	t.Helper()
	ok, err := e.gate.SetupPIN(context.Background(), "1234")
	require.NoError(t, err)
	require.True(t, ok)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rec)["error"]
}

// --- Open endpoints ---

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	resp := decode[httphandler.HealthResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.Time)
}

func TestListCategories(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/categories", "")

	require.Equal(t, http.StatusOK, rec.Code)
	cats := decode[[]httphandler.CategoryResponse](t, rec)
	require.Len(t, cats, 10)
	assert.Equal(t, "1", cats[0].ID)
	assert.Equal(t, "Other", cats[9].Name)
}

func TestGeneratePassword(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/password/generate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[httphandler.GenerateResponse](t, rec)
	assert.Len(t, resp.Password, 12)
	assert.NotEmpty(t, resp.Strength.Level)

	rec = env.do(t, http.MethodPost, "/api/v1/password/generate", `{"length":20,"symbols":false,"uppercase":false,"lowercase":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[httphandler.GenerateResponse](t, rec)
	assert.Len(t, resp.Password, 20)
	assert.Empty(t, strings.Trim(resp.Password, "0123456789"))

	rec = env.do(t, http.MethodPost, "/api/v1/password/generate", `{"symbols":false,"uppercase":false,"lowercase":false,"numbers":false}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPasswordStrength(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/password/strength", `{"password":"Tr0ub4dor&3xyz"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[httphandler.StrengthResponse](t, rec)
	assert.Equal(t, 7, resp.Score)
	assert.Equal(t, "Strong", resp.Level)
	assert.Equal(t, []string{}, resp.Feedback)
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "endpoint not found", errorMessage(t, rec))

	rec = env.do(t, http.MethodPut, "/api/v1/health", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/entries", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDPropagates(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-Id", "req-42")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

// --- Auth ---

func TestAuthStatus(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/auth/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[httphandler.AuthStatusResponse](t, rec)
	assert.Equal(t, "unset", status.State)
	assert.False(t, status.PINSetup)
	assert.False(t, status.Authenticated)
	assert.False(t, status.BiometricSupported)
	assert.Equal(t, []string{}, status.BiometricTypes)

	env.unlock(t)
	status = decode[httphandler.AuthStatusResponse](t, env.do(t, http.MethodGet, "/api/v1/auth/status", ""))
	assert.Equal(t, "unlocked", status.State)
	assert.True(t, status.PINSetup)
	assert.True(t, status.Authenticated)

	require.NoError(t, env.gate.Logout(context.Background()))
	status = decode[httphandler.AuthStatusResponse](t, env.do(t, http.MethodGet, "/api/v1/auth/status", ""))
	assert.Equal(t, "locked", status.State)
}

func TestAuthStatus_BiometricTypes(t *testing.T) {
	env := newTestEnv(t)
	env.bio.Hardware = true
	env.bio.Types = []model.BiometricType{model.BiometricFingerprint, model.BiometricFace}

	status := decode[httphandler.AuthStatusResponse](t, env.do(t, http.MethodGet, "/api/v1/auth/status", ""))
	assert.Equal(t, []string{"fingerprint", "face"}, status.BiometricTypes)
	assert.False(t, status.BiometricSupported, "sensors without enrollment are not usable")

	rec := env.do(t, http.MethodPost, "/api/v1/auth/pin/setup", `{"pin":"1234"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []string{"fingerprint", "face"}, decode[httphandler.AuthStatusResponse](t, rec).BiometricTypes)
}

func TestAuthStatus_StorageError(t *testing.T) {
	env := buildEnv(brokenSecureStore{SecureStore: memory.NewSecureStore()}, memory.NewDocumentStore(), nil)

	rec := env.do(t, http.MethodGet, "/api/v1/auth/status", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSetupPIN(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/pin/setup", `{"pin":"1234"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "unlocked", decode[httphandler.AuthStatusResponse](t, rec).State)

	rec = env.do(t, http.MethodPost, "/api/v1/auth/pin/setup", `{"pin":"9999"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	ok, err := env.gate.VerifyPIN(context.Background(), "1234")
	require.NoError(t, err)
	assert.True(t, ok, "a refused re-setup must not overwrite the PIN")
}

func TestSetupPIN_BadInput(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []string{`{"pin":"12a4"}`, `{"pin":"123"}`, `{"pin":"12345"}`, `not json`, `{"pin":"1234","extra":1}`} {
		rec := env.do(t, http.MethodPost, "/api/v1/auth/pin/setup", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}

	setup, err := env.gate.IsPINSetup(context.Background())
	require.NoError(t, err)
	assert.False(t, setup)
}

func TestVerifyPIN(t *testing.T) {
	env := newTestEnv(t)
	env.unlock(t)
	require.NoError(t, env.gate.Logout(context.Background()))

	rec := env.do(t, http.MethodPost, "/api/v1/auth/pin/verify", `{"pin":"0000"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "incorrect PIN", errorMessage(t, rec))

	authed, err := env.gate.IsAuthenticated(context.Background())
	require.NoError(t, err)
	assert.False(t, authed)

	rec = env.do(t, http.MethodPost, "/api/v1/auth/pin/verify", `{"pin":"1234"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	authed, err = env.gate.IsAuthenticated(context.Background())
	require.NoError(t, err)
	assert.True(t, authed)
}

func TestVerifyPIN_NoPINSetup(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/pin/verify", `{"pin":"1234"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVerifyPIN_LocksOutAfterRepeatedFailures(t *testing.T) {
	env := newTestEnv(t)
	env.unlock(t)
	require.NoError(t, env.gate.Logout(context.Background()))

	for i := 0; i < 5; i++ {
		rec := env.do(t, http.MethodPost, "/api/v1/auth/pin/verify", `{"pin":"0000"}`)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := env.do(t, http.MethodPost, "/api/v1/auth/pin/verify", `{"pin":"1234"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))

	rec = env.do(t, http.MethodPost, "/api/v1/auth/pin/change", `{"current_pin":"1234","new_pin":"5678","confirm_pin":"5678"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	authed, err := env.gate.IsAuthenticated(context.Background())
	require.NoError(t, err)
	assert.False(t, authed, "a locked-out correct PIN must not unlock")
}

func TestVerifyPIN_SuccessResetsFailureCount(t *testing.T) {
	env := newTestEnv(t)
	env.unlock(t)

	for round := 0; round < 3; round++ {
		for i := 0; i < 4; i++ {
			rec := env.do(t, http.MethodPost, "/api/v1/auth/pin/verify", `{"pin":"0000"}`)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
		}
		rec := env.do(t, http.MethodPost, "/api/v1/auth/pin/verify", `{"pin":"1234"}`)
		require.Equal(t, http.StatusNoContent, rec.Code)
	}
}

func TestChangePIN(t *testing.T) {
	env := newTestEnv(t)
	env.unlock(t)

	tests := []struct {
		name   string
		body   string
		status int
		msg    string
	}{
		{"same pin", `{"current_pin":"1234","new_pin":"1234","confirm_pin":"1234"}`, http.StatusBadRequest, model.ErrPINUnchanged.Error()},
		{"mismatch", `{"current_pin":"1234","new_pin":"5678","confirm_pin":"5679"}`, http.StatusBadRequest, model.ErrPINMismatch.Error()},
		{"bad format", `{"current_pin":"1234","new_pin":"56","confirm_pin":"56"}`, http.StatusBadRequest, model.ErrInvalidPIN.Error()},
		{"wrong current", `{"current_pin":"0000","new_pin":"5678","confirm_pin":"5678"}`, http.StatusUnauthorized, "current PIN is incorrect"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/auth/pin/change", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.msg, errorMessage(t, rec))
		})
	}

	rec := env.do(t, http.MethodPost, "/api/v1/auth/pin/change", `{"current_pin":"1234","new_pin":"5678","confirm_pin":"5678"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	ok, err := env.gate.VerifyPIN(context.Background(), "5678")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestResetPIN_RequiresUnlock(t *testing.T) {
	env := newTestEnv(t)
	env.unlock(t)
	require.NoError(t, env.gate.Logout(context.Background()))

	rec := env.do(t, http.MethodPost, "/api/v1/auth/pin/reset", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	setup, err := env.gate.IsPINSetup(context.Background())
	require.NoError(t, err)
	assert.True(t, setup)
}

func TestResetPIN_KeepsEntries(t *testing.T) {
	env := newTestEnv(t)
	env.unlock(t)

	id, err := env.creds.AddEntry(context.Background(), model.EntryInput{Title: "t", Username: "u", Password: "hunter2"})
	require.NoError(t, err)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/pin/reset", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	status := decode[httphandler.AuthStatusResponse](t, env.do(t, http.MethodGet, "/api/v1/auth/status", ""))
	assert.Equal(t, "unset", status.State)

	env.unlock(t)
	entry, err := env.creds.GetEntry(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", entry.Password)
}

func TestBiometric(t *testing.T) {
	env := newTestEnv(t)
	env.unlock(t)
	require.NoError(t, env.gate.Logout(context.Background()))

	env.bio.Hardware, env.bio.Enrolled = true, true
	env.bio.Result = model.BiometricResult{Error: "user_cancel"}

	rec := env.do(t, http.MethodPost, "/api/v1/auth/biometric", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decode[httphandler.BiometricResponse](t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "user_cancel", resp.Error)

	env.bio.Result = model.BiometricResult{Success: true}
	rec = env.do(t, http.MethodPost, "/api/v1/auth/biometric", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[httphandler.BiometricResponse](t, rec).Success)
	assert.Equal(t, 2, env.bio.Prompts())

	authed, err := env.gate.IsAuthenticated(context.Background())
	require.NoError(t, err)
	assert.True(t, authed)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	env.unlock(t)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/logout", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/entries", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// --- Entries ---

func TestEntries_RequireUnlock(t *testing.T) {
	env := newTestEnv(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/entries"},
		{http.MethodPost, "/api/v1/entries"},
		{http.MethodGet, "/api/v1/entries/abc"},
		{http.MethodPatch, "/api/v1/entries/abc"},
		{http.MethodDelete, "/api/v1/entries/abc"},
	} {
		rec := env.do(t, tc.method, tc.path, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)
		assert.Equal(t, application.ErrNotAuthenticated.Error(), errorMessage(t, rec))
	}
}

func TestEntries_StorageErrorFailsClosed(t *testing.T) {
	env := buildEnv(brokenSecureStore{SecureStore: memory.NewSecureStore()}, memory.NewDocumentStore(), nil)

	rec := env.do(t, http.MethodGet, "/api/v1/entries", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEntries_CRUD(t *testing.T) {
	env := newTestEnv(t)
	env.unlock(t)

	rec := env.do(t, http.MethodPost, "/api/v1/entries", `{"title":"Mail","username":"me@example.com","password":"hunter2","category":"3"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[httphandler.CreatedResponse](t, rec).ID
	require.NotEmpty(t, id)

	raw, err := env.docs.Get(context.Background(), application.PasswordsCollection, id)
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", raw.Fields["password"], "password stored encrypted")

	rec = env.do(t, http.MethodGet, "/api/v1/entries/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	entry := decode[httphandler.EntryResponse](t, rec)
	assert.Equal(t, "hunter2", entry.Password)
	assert.Equal(t, "", entry.Website)
	assert.Equal(t, "3", entry.Category)
	assert.NotEmpty(t, entry.CreatedAt)

	rec = env.do(t, http.MethodPatch, "/api/v1/entries/"+id, `{"title":"Work Mail","website":"https://mail.example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[httphandler.EntryResponse](t, rec)
	assert.Equal(t, "Work Mail", updated.Title)
	assert.Equal(t, "https://mail.example.com", updated.Website)
	assert.Equal(t, "hunter2", updated.Password)

	rec = env.do(t, http.MethodGet, "/api/v1/entries", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]httphandler.EntryResponse](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)

	rec = env.do(t, http.MethodDelete, "/api/v1/entries/"+id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/entries/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/v1/entries/"+id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code, "delete is idempotent")
}

func TestEntries_ListEmpty(t *testing.T) {
	env := newTestEnv(t)
	env.unlock(t)

	rec := env.do(t, http.MethodGet, "/api/v1/entries", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestEntries_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	env.unlock(t)

	for _, body := range []string{
		`{"username":"u","password":"p"}`,
		`{"title":"t","password":"p"}`,
		`{"title":"t","username":"u","password":"   "}`,
		`{"title":"t","username":"u","password":"p","color":"red"}`,
		`}`,
	} {
		rec := env.do(t, http.MethodPost, "/api/v1/entries", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestEntries_PatchValidation(t *testing.T) {
	env := newTestEnv(t)
	env.unlock(t)

	id, err := env.creds.AddEntry(context.Background(), model.EntryInput{Title: "t", Username: "u", Password: "p"})
	require.NoError(t, err)

	rec := env.do(t, http.MethodPatch, "/api/v1/entries/"+id, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPatch, "/api/v1/entries/"+id, `{"title":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPatch, "/api/v1/entries/missing", `{"title":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEntries_DecodeFailure(t *testing.T) {
	env := newTestEnv(t)
	env.unlock(t)

	env.docs.Put(application.PasswordsCollection, "corrupt", map[string]any{
		"title":    "corrupt",
		"password": "%%%",
		"userId":   owner,
	})

	rec := env.do(t, http.MethodGet, "/api/v1/entries/corrupt", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/entries", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestEntries_DocumentStoreDown(t *testing.T) {
	secure := memory.NewSecureStore()
	env := buildEnv(secure, brokenDocumentStore{}, nil)
	env.unlock(t)

	rec := env.do(t, http.MethodGet, "/api/v1/entries", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "document store unavailable", errorMessage(t, rec))

	rec = env.do(t, http.MethodPost, "/api/v1/entries", `{"title":"t","username":"u","password":"p"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/entries/abc", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
