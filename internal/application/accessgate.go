package application

import (
	"context"
	"crypto/subtle"
	"fmt"

	"go.uber.org/zap"

	"github.com/ericfisherdev/pinvault/internal/domain/model"
	"github.com/ericfisherdev/pinvault/internal/domain/port/driven"
)

const (
	// sessionValue is the stored form of a set session flag.
	sessionValue = "true"

	biometricPrompt      = "Unlock your password vault"
	biometricFailed      = "Authentication failed"
	biometricUnavailable = "biometric authentication unavailable"
)

// AccessGate decides whether the current session may reach stored
// credentials and manages the PIN lifecycle. Every storage failure is
// reported as "not authenticated": when an error is returned, the boolean
// result is always false. Errors never carry the stored PIN.
//
// The session flag has no expiry. It stays set across restarts until Logout.
type AccessGate struct {
	store     driven.SecureStore
	biometric driven.BiometricCapability
	logger    *zap.Logger
}

// NewAccessGate creates an AccessGate. biometric may be nil, in which case
// biometric authentication is reported as unsupported.
func NewAccessGate(store driven.SecureStore, biometric driven.BiometricCapability, logger *zap.Logger) *AccessGate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessGate{
		store:     store,
		biometric: biometric,
		logger:    logger,
	}
}

// IsPINSetup reports whether a PIN record exists.
func (g *AccessGate) IsPINSetup(ctx context.Context) (bool, error) {
	_, ok, err := g.store.Get(ctx, driven.KeyPIN)
	if err != nil {
		return false, fmt.Errorf("read PIN record: %w", err)
	}
	return ok, nil
}

// SetupPIN stores pin and marks the session authenticated. It does not check
// for an existing PIN; calling it again overwrites the record.
func (g *AccessGate) SetupPIN(ctx context.Context, pin string) (bool, error) {
	if err := g.store.Set(ctx, driven.KeyPIN, pin); err != nil {
		g.logger.Error("failed to store PIN record", zap.Error(err))
		return false, fmt.Errorf("store PIN record: %w", err)
	}
	if err := g.markAuthenticated(ctx); err != nil {
		return false, err
	}
	g.logger.Info("PIN set up")
	return true, nil
}

// VerifyPIN compares candidate against the stored PIN. On a match the session
// is marked authenticated. A mismatch, or no stored PIN, returns false with a
// nil error and leaves the session flag untouched.
func (g *AccessGate) VerifyPIN(ctx context.Context, candidate string) (bool, error) {
	stored, ok, err := g.store.Get(ctx, driven.KeyPIN)
	if err != nil {
		g.logger.Error("failed to read PIN record", zap.Error(err))
		return false, fmt.Errorf("read PIN record: %w", err)
	}
	if !ok || subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) != 1 {
		g.logger.Debug("PIN verification failed")
		return false, nil
	}
	if err := g.markAuthenticated(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// ChangePIN replaces the PIN with next when current verifies. Whether next
// differs from current is left to the caller.
func (g *AccessGate) ChangePIN(ctx context.Context, current, next string) (bool, error) {
	ok, err := g.VerifyPIN(ctx, current)
	if err != nil || !ok {
		return false, err
	}
	if err := g.store.Set(ctx, driven.KeyPIN, next); err != nil {
		g.logger.Error("failed to store new PIN record", zap.Error(err))
		return false, fmt.Errorf("store PIN record: %w", err)
	}
	g.logger.Info("PIN changed")
	return true, nil
}

// ResetPIN deletes the PIN record and clears the session. The encryption key
// is kept, so entries stay readable once a new PIN is set up.
func (g *AccessGate) ResetPIN(ctx context.Context) error {
	if err := g.store.Delete(ctx, driven.KeyPIN); err != nil {
		return fmt.Errorf("delete PIN record: %w", err)
	}
	if err := g.store.Delete(ctx, driven.KeySession); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	g.logger.Warn("PIN reset")
	return nil
}

// IsAuthenticated returns the session flag.
func (g *AccessGate) IsAuthenticated(ctx context.Context) (bool, error) {
	v, ok, err := g.store.Get(ctx, driven.KeySession)
	if err != nil {
		return false, fmt.Errorf("read session flag: %w", err)
	}
	return ok && v == sessionValue, nil
}

// Logout clears the session flag. The PIN record and encryption key stay.
func (g *AccessGate) Logout(ctx context.Context) error {
	if err := g.store.Delete(ctx, driven.KeySession); err != nil {
		g.logger.Error("failed to clear session", zap.Error(err))
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// State reports the gate's lock state.
func (g *AccessGate) State(ctx context.Context) (model.LockState, error) {
	setup, err := g.IsPINSetup(ctx)
	if err != nil {
		return model.LockStateLocked, err
	}
	if !setup {
		return model.LockStateUnset, nil
	}
	authed, err := g.IsAuthenticated(ctx)
	if err != nil {
		return model.LockStateLocked, err
	}
	if authed {
		return model.LockStateUnlocked, nil
	}
	return model.LockStateLocked, nil
}

// IsBiometricSupported reports whether the host has biometric hardware and at
// least one enrolled credential. Backend errors count as unsupported.
func (g *AccessGate) IsBiometricSupported(ctx context.Context) bool {
	if g.biometric == nil {
		return false
	}
	hasHardware, err := g.biometric.HasHardware(ctx)
	if err != nil {
		g.logger.Debug("biometric hardware check failed", zap.Error(err))
		return false
	}
	if !hasHardware {
		return false
	}
	enrolled, err := g.biometric.IsEnrolled(ctx)
	if err != nil {
		g.logger.Debug("biometric enrollment check failed", zap.Error(err))
		return false
	}
	return enrolled
}

// AvailableBiometricTypes lists the sensor kinds the host offers. Backend
// errors yield an empty list. The result is never nil.
func (g *AccessGate) AvailableBiometricTypes(ctx context.Context) []model.BiometricType {
	if g.biometric == nil {
		return []model.BiometricType{}
	}
	types, err := g.biometric.SupportedTypes(ctx)
	if err != nil {
		g.logger.Debug("biometric type lookup failed", zap.Error(err))
		return []model.BiometricType{}
	}
	if types == nil {
		return []model.BiometricType{}
	}
	return types
}

// AuthenticateWithBiometric shows the biometric prompt once. On success the
// session is marked authenticated; on failure the platform reason is returned
// and the session flag is not touched.
func (g *AccessGate) AuthenticateWithBiometric(ctx context.Context) model.BiometricResult {
	if g.biometric == nil {
		return model.BiometricResult{Error: biometricUnavailable}
	}

	result, err := g.biometric.Prompt(ctx, biometricPrompt)
	if err != nil {
		g.logger.Warn("biometric prompt failed", zap.Error(err))
		return model.BiometricResult{Error: err.Error()}
	}
	if !result.Success {
		if result.Error == "" {
			result.Error = biometricFailed
		}
		return result
	}

	if err := g.markAuthenticated(ctx); err != nil {
		return model.BiometricResult{Error: "failed to record session"}
	}
	return model.BiometricResult{Success: true}
}

// Authenticate tries biometric authentication when the host supports it.
// It returns false when biometrics are unavailable or rejected, leaving the
// caller to fall back to the PIN.
func (g *AccessGate) Authenticate(ctx context.Context) bool {
	if !g.IsBiometricSupported(ctx) {
		return false
	}
	return g.AuthenticateWithBiometric(ctx).Success
}

func (g *AccessGate) markAuthenticated(ctx context.Context) error {
	if err := g.store.Set(ctx, driven.KeySession, sessionValue); err != nil {
		g.logger.Error("failed to set session flag", zap.Error(err))
		return fmt.Errorf("set session flag: %w", err)
	}
	return nil
}
