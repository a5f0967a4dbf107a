package driven

import (
	"context"

	"github.com/ericfisherdev/pinvault/internal/domain/model"
)

// BiometricCapability defines the driven port for the host biometric facility.
type BiometricCapability interface {
	// HasHardware reports whether a biometric sensor is present.
	HasHardware(ctx context.Context) (bool, error)

	// IsEnrolled reports whether at least one biometric credential is enrolled.
	IsEnrolled(ctx context.Context) (bool, error)

	// SupportedTypes lists the sensor kinds present, regardless of enrollment.
	SupportedTypes(ctx context.Context) ([]model.BiometricType, error)

	// Prompt asks the user to authenticate once, showing message. A rejected
	// or cancelled prompt is reported through the result, not the error; the
	// error is reserved for failures to run the prompt at all.
	Prompt(ctx context.Context, message string) (model.BiometricResult, error)
}
