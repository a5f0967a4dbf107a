package model

import "errors"

// PINLength is the number of digits in a PIN.
const PINLength = 4

// Sentinel errors for PIN input rules. These are enforced by the driving
// adapters before a PIN reaches the access gate.
var (
	ErrInvalidPIN   = errors.New("PIN must be exactly 4 digits")
	ErrPINUnchanged = errors.New("new PIN must be different from current PIN")
	ErrPINMismatch  = errors.New("PINs do not match")
)

// ValidatePIN checks that pin is exactly PINLength ASCII digits.
func ValidatePIN(pin string) error {
	if len(pin) != PINLength {
		return ErrInvalidPIN
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return ErrInvalidPIN
		}
	}
	return nil
}

// ValidatePINChange applies the change-PIN screen rules: both PINs well
// formed, the new PIN different from the current one, and the confirmation
// matching the new PIN.
func ValidatePINChange(current, next, confirm string) error {
	if err := ValidatePIN(current); err != nil {
		return err
	}
	if err := ValidatePIN(next); err != nil {
		return err
	}
	if next == current {
		return ErrPINUnchanged
	}
	if confirm != next {
		return ErrPINMismatch
	}
	return nil
}

// LockState is the access gate's position in its state machine.
type LockState string

const (
	LockStateUnset    LockState = "unset"    // No PIN has been set up.
	LockStateLocked   LockState = "locked"   // PIN exists, session flag clear.
	LockStateUnlocked LockState = "unlocked" // Session flag set.
)

// BiometricType is a kind of biometric sensor the host offers.
type BiometricType string

const (
	BiometricFingerprint BiometricType = "fingerprint"
	BiometricFace        BiometricType = "face"
	BiometricIris        BiometricType = "iris"
)

// BiometricResult is the outcome of a single biometric prompt. Error holds
// the platform-supplied reason when Success is false.
type BiometricResult struct {
	Success bool
	Error   string
}
