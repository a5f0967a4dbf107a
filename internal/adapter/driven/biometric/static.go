package biometric

import (
	"context"
	"sync/atomic"

	"github.com/ericfisherdev/pinvault/internal/domain/model"
	"github.com/ericfisherdev/pinvault/internal/domain/port/driven"
)

var _ driven.BiometricCapability = (*Static)(nil)

// Static is a BiometricCapability with fixed answers. It stands in for the
// host facility in tests and when biometrics are disabled.
type Static struct {
	Hardware bool
	Enrolled bool
	Types    []model.BiometricType
	Result   model.BiometricResult
	// Err, when set, is returned by every method.
	Err error

	prompts atomic.Int32
}

// Unavailable returns a Static reporting no hardware.
func Unavailable() *Static {
	return &Static{}
}

// HasHardware returns s.Hardware.
func (s *Static) HasHardware(context.Context) (bool, error) {
	if s.Err != nil {
		return false, s.Err
	}
	return s.Hardware, nil
}

// IsEnrolled returns s.Enrolled.
func (s *Static) IsEnrolled(context.Context) (bool, error) {
	if s.Err != nil {
		return false, s.Err
	}
	return s.Enrolled, nil
}

// SupportedTypes returns s.Types.
func (s *Static) SupportedTypes(context.Context) ([]model.BiometricType, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Types, nil
}

// Prompt records the call and returns s.Result.
func (s *Static) Prompt(context.Context, string) (model.BiometricResult, error) {
	s.prompts.Add(1)
	if s.Err != nil {
		return model.BiometricResult{}, s.Err
	}
	return s.Result, nil
}

// Prompts returns how many times Prompt has been called.
func (s *Static) Prompts() int {
	return int(s.prompts.Load())
}
