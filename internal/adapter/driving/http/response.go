package httphandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ericfisherdev/pinvault/internal/application"
	"github.com/ericfisherdev/pinvault/internal/domain/model"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 64 << 10

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// decodeJSON reads a single JSON object from the request body into v. An
// empty body leaves v untouched when allowEmpty is set.
func decodeJSON(r *http.Request, v any, allowEmpty bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// CategoryResponse is the JSON representation of an entry category.
type CategoryResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// AuthStatusResponse describes where the access gate stands.
type AuthStatusResponse struct {
	State              string   `json:"state"`
	PINSetup           bool     `json:"pin_setup"`
	Authenticated      bool     `json:"authenticated"`
	BiometricSupported bool     `json:"biometric_supported"`
	BiometricTypes     []string `json:"biometric_types"`
}

// PINRequest is the JSON body for PIN setup and verification.
type PINRequest struct {
	PIN string `json:"pin"`
}

// ChangePINRequest is the JSON body for the change PIN endpoint.
type ChangePINRequest struct {
	CurrentPIN string `json:"current_pin"`
	NewPIN     string `json:"new_pin"`
	ConfirmPIN string `json:"confirm_pin"`
}

// BiometricResponse is the outcome of a biometric unlock attempt.
type BiometricResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// GenerateRequest is the JSON body for the password generator. Omitted
// character classes default to enabled.
type GenerateRequest struct {
	Length    int   `json:"length"`
	Uppercase *bool `json:"uppercase"`
	Lowercase *bool `json:"lowercase"`
	Numbers   *bool `json:"numbers"`
	Symbols   *bool `json:"symbols"`
}

// GenerateResponse carries a generated password and its strength.
type GenerateResponse struct {
	Password string           `json:"password"`
	Strength StrengthResponse `json:"strength"`
}

// StrengthRequest is the JSON body for the strength meter.
type StrengthRequest struct {
	Password string `json:"password"`
}

// StrengthResponse is the JSON representation of a strength report.
type StrengthResponse struct {
	Score    int      `json:"score"`
	Level    string   `json:"level"`
	Feedback []string `json:"feedback"`
}

// EntryRequest is the JSON body for creating an entry.
type EntryRequest struct {
	Title    string `json:"title"`
	Username string `json:"username"`
	Password string `json:"password"`
	Website  string `json:"website"`
	Notes    string `json:"notes"`
	Category string `json:"category"`
}

// EntryPatchRequest is the JSON body for a partial entry update. Omitted
// fields are left untouched.
type EntryPatchRequest struct {
	Title    *string `json:"title"`
	Username *string `json:"username"`
	Password *string `json:"password"`
	Website  *string `json:"website"`
	Notes    *string `json:"notes"`
	Category *string `json:"category"`
}

// EntryResponse is the JSON representation of a decrypted entry.
type EntryResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Website   string `json:"website"`
	Notes     string `json:"notes"`
	Category  string `json:"category"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// CreatedResponse returns the id of a newly created entry.
type CreatedResponse struct {
	ID string `json:"id"`
}

func toCategoryResponse(c model.Category) CategoryResponse {
	return CategoryResponse{ID: c.ID, Name: c.Name, Icon: c.Icon}
}

func toStrengthResponse(r application.StrengthReport) StrengthResponse {
	feedback := r.Feedback
	if feedback == nil {
		feedback = []string{}
	}
	return StrengthResponse{Score: r.Score, Level: r.Level, Feedback: feedback}
}

// toEntryResponse converts a domain Entry to its JSON response representation.
func toEntryResponse(e model.Entry) EntryResponse {
	return EntryResponse{
		ID:        e.ID,
		Title:     e.Title,
		Username:  e.Username,
		Password:  e.Password,
		Website:   e.Website,
		Notes:     e.Notes,
		Category:  e.Category,
		CreatedAt: formatTime(e.CreatedAt),
		UpdatedAt: formatTime(e.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func (req GenerateRequest) options() application.PasswordOptions {
	opts := application.DefaultPasswordOptions()
	if req.Length != 0 {
		opts.Length = req.Length
	}
	if req.Uppercase != nil {
		opts.Uppercase = *req.Uppercase
	}
	if req.Lowercase != nil {
		opts.Lowercase = *req.Lowercase
	}
	if req.Numbers != nil {
		opts.Numbers = *req.Numbers
	}
	if req.Symbols != nil {
		opts.Symbols = *req.Symbols
	}
	return opts
}

func (req EntryRequest) input() model.EntryInput {
	return model.EntryInput{
		Title:    req.Title,
		Username: req.Username,
		Password: req.Password,
		Website:  req.Website,
		Notes:    req.Notes,
		Category: req.Category,
	}
}

func (req EntryPatchRequest) update() model.EntryUpdate {
	return model.EntryUpdate{
		Title:    req.Title,
		Username: req.Username,
		Password: req.Password,
		Website:  req.Website,
		Notes:    req.Notes,
		Category: req.Category,
	}
}
