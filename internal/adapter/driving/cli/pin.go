package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/pinvault/internal/domain/model"
)

// ErrIncorrectPIN is returned when a PIN does not match the stored one.
var ErrIncorrectPIN = errors.New("incorrect PIN")

type statusJSON struct {
	State              string                `json:"state"`
	PINSetup           bool                  `json:"pin_setup"`
	Authenticated      bool                  `json:"authenticated"`
	BiometricSupported bool                  `json:"biometric_supported"`
	BiometricTypes     []model.BiometricType `json:"biometric_types"`
}

func (r *runner) newPINCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pin",
		Short: "Set up, verify, change or reset the vault PIN",
	}
	cmd.AddCommand(
		r.newPINSetupCommand(),
		r.newPINVerifyCommand(),
		r.newPINChangeCommand(),
		r.newPINResetCommand(),
		r.newPINStatusCommand(),
	)
	return cmd
}

func (r *runner) newPINSetupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Create the vault PIN and unlock the vault",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := r.open(cmd.Context())
			if err != nil {
				return err
			}

			exists, err := deps.Gate.IsPINSetup(cmd.Context())
			if err != nil {
				return err
			}
			if exists {
				return errors.New("a PIN is already set up; use 'pinvaultctl pin change'")
			}

			pin, err := r.readSecret("New PIN: ")
			if err != nil {
				return err
			}
			if err := model.ValidatePIN(pin); err != nil {
				return err
			}
			confirm, err := r.readSecret("Confirm PIN: ")
			if err != nil {
				return err
			}
			if confirm != pin {
				return model.ErrPINMismatch
			}

			if _, err := deps.Gate.SetupPIN(cmd.Context(), pin); err != nil {
				return err
			}
			r.success("PIN set up, vault unlocked")
			return nil
		},
	}
}

func (r *runner) newPINVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "verify",
		Aliases: []string{"login"},
		Short:   "Unlock the vault with the PIN",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := r.open(cmd.Context())
			if err != nil {
				return err
			}
			return r.verifyPIN(cmd, deps)
		},
	}
}

func (r *runner) verifyPIN(cmd *cobra.Command, deps *Deps) error {
	setup, err := deps.Gate.IsPINSetup(cmd.Context())
	if err != nil {
		return err
	}
	if !setup {
		return errors.New("no PIN set up; run 'pinvaultctl pin setup' first")
	}

	pin, err := r.readSecret("PIN: ")
	if err != nil {
		return err
	}
	if err := model.ValidatePIN(pin); err != nil {
		return err
	}

	ok, err := deps.Gate.VerifyPIN(cmd.Context(), pin)
	if err != nil {
		return err
	}
	if !ok {
		return ErrIncorrectPIN
	}
	r.success("Vault unlocked")
	return nil
}

func (r *runner) newPINChangeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "change",
		Short: "Change the vault PIN",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := r.open(cmd.Context())
			if err != nil {
				return err
			}

			current, err := r.readSecret("Current PIN: ")
			if err != nil {
				return err
			}
			next, err := r.readSecret("New PIN: ")
			if err != nil {
				return err
			}
			confirm, err := r.readSecret("Confirm new PIN: ")
			if err != nil {
				return err
			}
			if err := model.ValidatePINChange(current, next, confirm); err != nil {
				return err
			}

			ok, err := deps.Gate.ChangePIN(cmd.Context(), current, next)
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("current PIN is incorrect")
			}
			r.success("PIN changed")
			return nil
		},
	}
}

func (r *runner) newPINResetCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Remove the PIN and lock the vault (entries are kept)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := r.unlocked(cmd.Context())
			if err != nil {
				return err
			}
			if !yes {
				answer, err := r.readLine("Reset the PIN? Type 'yes' to confirm: ")
				if err != nil {
					return err
				}
				if answer != "yes" {
					return errors.New("reset aborted")
				}
			}
			if err := deps.Gate.ResetPIN(cmd.Context()); err != nil {
				return err
			}
			r.success("PIN reset; run 'pinvaultctl pin setup' to choose a new one")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func (r *runner) newPINStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the vault is set up and unlocked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := r.open(cmd.Context())
			if err != nil {
				return err
			}
			state, err := deps.Gate.State(cmd.Context())
			if err != nil {
				return err
			}
			status := statusJSON{
				State:              string(state),
				PINSetup:           state != model.LockStateUnset,
				Authenticated:      state == model.LockStateUnlocked,
				BiometricSupported: deps.Gate.IsBiometricSupported(cmd.Context()),
				BiometricTypes:     deps.Gate.AvailableBiometricTypes(cmd.Context()),
			}
			if r.json {
				return r.printJSON(status)
			}

			r.printf("%-10s %s\n", "State", string(state))
			r.printf("%-10s %t\n", "Biometric", status.BiometricSupported)
			sensors := "none"
			if len(status.BiometricTypes) > 0 {
				names := make([]string, len(status.BiometricTypes))
				for i, t := range status.BiometricTypes {
					names[i] = string(t)
				}
				sensors = strings.Join(names, ", ")
			}
			r.printf("%-10s %s\n", "Sensors", sensors)
			if state == model.LockStateUnset {
				fmt.Fprintln(r.opts.Out, infoMark()+" Run 'pinvaultctl pin setup' to create a PIN")
			}
			return nil
		},
	}
}

func (r *runner) newUnlockCommand() *cobra.Command {
	var pinOnly bool
	cmd := &cobra.Command{
		Use:   "unlock",
		Short: "Unlock the vault with the fingerprint reader, falling back to the PIN",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := r.open(cmd.Context())
			if err != nil {
				return err
			}
			if !pinOnly && deps.Gate.Authenticate(cmd.Context()) {
				r.success("Vault unlocked")
				return nil
			}
			return r.verifyPIN(cmd, deps)
		},
	}
	cmd.Flags().BoolVar(&pinOnly, "pin", false, "skip biometric authentication")
	return cmd
}

func (r *runner) newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "logout",
		Aliases: []string{"lock"},
		Short:   "Lock the vault",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := r.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := deps.Gate.Logout(cmd.Context()); err != nil {
				return err
			}
			r.success("Vault locked")
			return nil
		},
	}
}
