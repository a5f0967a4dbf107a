package httphandler

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/ericfisherdev/pinvault/internal/domain/model"
)

const msgStorageUnavailable = "secure storage unavailable"

// AuthStatus reports the gate state.
func (h *Handler) AuthStatus(w http.ResponseWriter, r *http.Request) {
	state, err := h.gate.State(r.Context())
	if err != nil {
		h.logger.Error("failed to read gate state", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgStorageUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, h.authStatus(r.Context(), state))
}

func (h *Handler) authStatus(ctx context.Context, state model.LockState) AuthStatusResponse {
	types := h.gate.AvailableBiometricTypes(ctx)
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return AuthStatusResponse{
		State:              string(state),
		PINSetup:           state != model.LockStateUnset,
		Authenticated:      state == model.LockStateUnlocked,
		BiometricSupported: h.gate.IsBiometricSupported(ctx),
		BiometricTypes:     names,
	}
}

// SetupPIN stores the first PIN and unlocks the vault. A second setup is
// refused with 409; changing an existing PIN goes through ChangePIN.
func (h *Handler) SetupPIN(w http.ResponseWriter, r *http.Request) {
	var req PINRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := model.ValidatePIN(req.PIN); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	exists, err := h.gate.IsPINSetup(r.Context())
	if err != nil {
		h.logger.Error("failed to check PIN record", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgStorageUnavailable)
		return
	}
	if exists {
		writeError(w, http.StatusConflict, "PIN already set up")
		return
	}

	if ok, err := h.gate.SetupPIN(r.Context(), req.PIN); err != nil || !ok {
		h.logger.Error("failed to set up PIN", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgStorageUnavailable)
		return
	}

	writeJSON(w, http.StatusCreated, h.authStatus(r.Context(), model.LockStateUnlocked))
}

// VerifyPIN unlocks the vault when the PIN matches.
func (h *Handler) VerifyPIN(w http.ResponseWriter, r *http.Request) {
	var req PINRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := model.ValidatePIN(req.PIN); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.rejectIfLocked(w) {
		return
	}

	ok, err := h.gate.VerifyPIN(r.Context(), req.PIN)
	if err != nil {
		h.logger.Error("failed to verify PIN", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgStorageUnavailable)
		return
	}
	if !ok {
		h.pins.fail()
		h.logger.Warn("incorrect PIN attempt", zap.String("remote_addr", r.RemoteAddr))
		writeError(w, http.StatusUnauthorized, "incorrect PIN")
		return
	}
	h.pins.succeed()

	w.WriteHeader(http.StatusNoContent)
}

// ChangePIN replaces the PIN after checking the current one.
func (h *Handler) ChangePIN(w http.ResponseWriter, r *http.Request) {
	var req ChangePINRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := model.ValidatePINChange(req.CurrentPIN, req.NewPIN, req.ConfirmPIN); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.rejectIfLocked(w) {
		return
	}

	ok, err := h.gate.ChangePIN(r.Context(), req.CurrentPIN, req.NewPIN)
	if err != nil {
		h.logger.Error("failed to change PIN", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgStorageUnavailable)
		return
	}
	if !ok {
		h.pins.fail()
		h.logger.Warn("incorrect current PIN on change", zap.String("remote_addr", r.RemoteAddr))
		writeError(w, http.StatusUnauthorized, "current PIN is incorrect")
		return
	}
	h.pins.succeed()

	w.WriteHeader(http.StatusNoContent)
}

// ResetPIN removes the PIN and locks the vault. Entries are kept.
func (h *Handler) ResetPIN(w http.ResponseWriter, r *http.Request) {
	if err := h.gate.ResetPIN(r.Context()); err != nil {
		h.logger.Error("failed to reset PIN", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgStorageUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Biometric runs one biometric prompt on the host.
func (h *Handler) Biometric(w http.ResponseWriter, r *http.Request) {
	result := h.gate.AuthenticateWithBiometric(r.Context())
	if !result.Success {
		writeJSON(w, http.StatusUnauthorized, BiometricResponse{Error: result.Error})
		return
	}
	writeJSON(w, http.StatusOK, BiometricResponse{Success: true})
}

// Logout locks the vault.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.gate.Logout(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, msgStorageUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
