// Package biometric implements the BiometricCapability port. Fprintd drives
// the Linux fprintd command-line tools; Static returns fixed answers.
package biometric

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/ericfisherdev/pinvault/internal/domain/model"
	"github.com/ericfisherdev/pinvault/internal/domain/port/driven"
)

var _ driven.BiometricCapability = (*Fprintd)(nil)

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Fprintd queries and prompts through fprintd-list and fprintd-verify.
type Fprintd struct {
	user string
	run  Runner
	out  io.Writer
}

// NewFprintd creates an Fprintd for user. The prompt message is written to
// out before each verification, since fprintd-verify shows none of its own.
// run may be nil to execute the real binaries.
func NewFprintd(user string, out io.Writer, run Runner) *Fprintd {
	if run == nil {
		run = execRunner
	}
	if out == nil {
		out = io.Discard
	}
	return &Fprintd{user: user, run: run, out: out}
}

// HasHardware reports whether fprintd sees a fingerprint reader. A missing
// fprintd installation counts as no hardware.
func (f *Fprintd) HasHardware(ctx context.Context) (bool, error) {
	out, err := f.list(ctx)
	if errors.Is(err, exec.ErrNotFound) {
		return false, nil
	}
	if bytes.Contains(out, []byte("No devices available")) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("fprintd-list: %w", err)
	}
	return true, nil
}

// IsEnrolled reports whether the user has at least one enrolled finger.
func (f *Fprintd) IsEnrolled(ctx context.Context) (bool, error) {
	out, err := f.list(ctx)
	if errors.Is(err, exec.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("fprintd-list: %w", err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		if strings.HasPrefix(strings.TrimSpace(scanner.Text()), "- #") {
			return true, nil
		}
	}
	return false, nil
}

// SupportedTypes reports fingerprint when fprintd sees a reader. fprintd
// drives no other sensor kind.
func (f *Fprintd) SupportedTypes(ctx context.Context) ([]model.BiometricType, error) {
	hw, err := f.HasHardware(ctx)
	if err != nil || !hw {
		return nil, err
	}
	return []model.BiometricType{model.BiometricFingerprint}, nil
}

// Prompt runs a single fprintd-verify. A non-matching finger is a failed
// result carrying fprintd's verify status; only a failure to run the tool at
// all is returned as an error.
func (f *Fprintd) Prompt(ctx context.Context, message string) (model.BiometricResult, error) {
	fmt.Fprintln(f.out, message)

	out, err := f.run(ctx, "fprintd-verify", f.user)
	status := verifyStatus(out)
	if status == "verify-match" {
		return model.BiometricResult{Success: true}, nil
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return model.BiometricResult{}, fmt.Errorf("fprintd-verify: %w", err)
	}
	if status == "" {
		status = "Authentication failed"
	}
	return model.BiometricResult{Error: status}, nil
}

func (f *Fprintd) list(ctx context.Context) ([]byte, error) {
	return f.run(ctx, "fprintd-list", f.user)
}

// verifyStatus extracts the status token from the last "Verify result:" line,
// e.g. "verify-match" from "Verify result: verify-match (done)".
func verifyStatus(out []byte) string {
	var status string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		rest, ok := strings.CutPrefix(strings.TrimSpace(scanner.Text()), "Verify result:")
		if !ok {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) > 0 {
			status = fields[0]
		}
	}
	return status
}

// New returns the capability registered under name: "none" or "fprintd".
func New(name, user string, out io.Writer) (driven.BiometricCapability, error) {
	switch name {
	case "", "none":
		return Unavailable(), nil
	case "fprintd":
		return NewFprintd(user, out, nil), nil
	default:
		return nil, fmt.Errorf("unknown biometric backend %q", name)
	}
}
