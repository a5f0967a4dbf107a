package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ericfisherdev/pinvault/internal/application"
	"github.com/ericfisherdev/pinvault/internal/domain/model"
)

type strengthJSON struct {
	Password string   `json:"password,omitempty"`
	Score    int      `json:"score"`
	Level    string   `json:"level"`
	Feedback []string `json:"feedback"`
}

func (r *runner) newGenerateCommand() *cobra.Command {
	opts := application.DefaultPasswordOptions()
	var noUpper, noLower, noNumbers, noSymbols bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a random password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Uppercase = !noUpper
			opts.Lowercase = !noLower
			opts.Numbers = !noNumbers
			opts.Symbols = !noSymbols

			password, err := application.GeneratePassword(opts)
			if err != nil {
				return err
			}
			if r.json {
				return r.printJSON(toStrengthJSON(password, application.PasswordStrength(password)))
			}
			r.printf("%s\n", password)
			return nil
		},
	}
	cmd.Flags().IntVarP(&opts.Length, "length", "l", application.DefaultPasswordLength, "password length (4-50)")
	cmd.Flags().BoolVar(&noUpper, "no-uppercase", false, "exclude uppercase letters")
	cmd.Flags().BoolVar(&noLower, "no-lowercase", false, "exclude lowercase letters")
	cmd.Flags().BoolVar(&noNumbers, "no-numbers", false, "exclude digits")
	cmd.Flags().BoolVar(&noSymbols, "no-symbols", false, "exclude symbols")
	return cmd
}

func (r *runner) newStrengthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "strength [password]",
		Short: "Score a password; prompts when no argument is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if len(args) == 1 {
				password = args[0]
			} else {
				var err error
				password, err = r.readSecret("Password: ")
				if err != nil {
					return err
				}
			}

			report := application.PasswordStrength(password)
			if r.json {
				return r.printJSON(toStrengthJSON("", report))
			}

			r.printf("%-10s %s (%d/7)\n", "Strength", levelColor(report.Level), report.Score)
			for _, tip := range report.Feedback {
				r.printf("  %s %s\n", infoMark(), tip)
			}
			return nil
		},
	}
}

func (r *runner) newCategoriesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List entry categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if r.json {
				type categoryJSON struct {
					ID   string `json:"id"`
					Name string `json:"name"`
				}
				out := make([]categoryJSON, 0, len(model.Categories))
				for _, c := range model.Categories {
					out = append(out, categoryJSON{ID: c.ID, Name: c.Name})
				}
				return r.printJSON(out)
			}
			for _, c := range model.Categories {
				r.printf("%3s  %s\n", c.ID, c.Name)
			}
			return nil
		},
	}
}

func toStrengthJSON(password string, report application.StrengthReport) strengthJSON {
	feedback := report.Feedback
	if feedback == nil {
		feedback = []string{}
	}
	return strengthJSON{Password: password, Score: report.Score, Level: report.Level, Feedback: feedback}
}

func levelColor(level string) string {
	switch {
	case level == "Strong", level == "Good":
		return color.GreenString(level)
	case level == "Fair":
		return color.YellowString(level)
	default:
		return color.RedString(level)
	}
}
