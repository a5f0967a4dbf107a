// Package httphandler is the JSON API driving adapter for the vault.
package httphandler

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ericfisherdev/pinvault/internal/application"
	"github.com/ericfisherdev/pinvault/internal/domain/model"
)

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	gate        *application.AccessGate
	credentials *application.CredentialService
	pins        *pinThrottle
	logger      *zap.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(gate *application.AccessGate, credentials *application.CredentialService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		gate:        gate,
		credentials: credentials,
		pins:        newPINThrottle(),
		logger:      logger,
	}
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// ListCategories returns the fixed entry categories.
func (h *Handler) ListCategories(w http.ResponseWriter, _ *http.Request) {
	resp := make([]CategoryResponse, 0, len(model.Categories))
	for _, c := range model.Categories {
		resp = append(resp, toCategoryResponse(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GeneratePassword returns a random password for the requested options.
func (h *Handler) GeneratePassword(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	password, err := application.GeneratePassword(req.options())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, GenerateResponse{
		Password: password,
		Strength: toStrengthResponse(application.PasswordStrength(password)),
	})
}

// PasswordStrength scores the submitted password.
func (h *Handler) PasswordStrength(w http.ResponseWriter, r *http.Request) {
	var req StrengthRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, toStrengthResponse(application.PasswordStrength(req.Password)))
}
