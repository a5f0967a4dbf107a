package httphandler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ericfisherdev/pinvault/internal/application"
	"github.com/ericfisherdev/pinvault/internal/domain/model"
)

// ListEntries returns the owner's entries, most recently updated first.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.credentials.ListEntries(r.Context(), h.credentials.OwnerID())
	if err != nil {
		h.writeEntryError(w, "list", "", err)
		return
	}

	resp := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, toEntryResponse(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateEntry adds an entry.
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req EntryRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in := req.input()
	if err := in.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.credentials.AddEntry(r.Context(), in)
	if err != nil {
		h.writeEntryError(w, "create", "", err)
		return
	}
	writeJSON(w, http.StatusCreated, CreatedResponse{ID: id})
}

// GetEntry returns one entry.
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	entry, err := h.credentials.GetEntry(r.Context(), id)
	if err != nil {
		h.writeEntryError(w, "get", id, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryResponse(entry))
}

// UpdateEntry applies a partial update and returns the updated entry.
func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req EntryPatchRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	upd := req.update()
	if upd.IsEmpty() {
		writeError(w, http.StatusBadRequest, "no fields to update")
		return
	}
	for name, v := range map[string]*string{"title": upd.Title, "username": upd.Username} {
		if v != nil && *v == "" {
			writeError(w, http.StatusBadRequest, name+": "+model.ErrMissingField.Error())
			return
		}
	}

	if err := h.credentials.UpdateEntry(r.Context(), id, upd); err != nil {
		h.writeEntryError(w, "update", id, err)
		return
	}

	entry, err := h.credentials.GetEntry(r.Context(), id)
	if err != nil {
		h.writeEntryError(w, "get", id, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryResponse(entry))
}

// DeleteEntry removes an entry. Deleting a missing entry succeeds.
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.credentials.DeleteEntry(r.Context(), id); err != nil {
		h.writeEntryError(w, "delete", id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeEntryError maps credential service errors to status codes: missing
// entries are 404, undecodable ciphertext 422, everything else a 502 from
// the document store.
func (h *Handler) writeEntryError(w http.ResponseWriter, op, id string, err error) {
	switch {
	case errors.Is(err, application.ErrEntryNotFound):
		writeError(w, http.StatusNotFound, "entry not found")
	case errors.Is(err, application.ErrDecode):
		h.logger.Error("entry could not be decrypted", zap.String("op", op), zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusUnprocessableEntity, "entry could not be decrypted")
	default:
		h.logger.Error("document store call failed", zap.String("op", op), zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusBadGateway, "document store unavailable")
	}
}
