package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ericfisherdev/pinvault/internal/application"
	"github.com/ericfisherdev/pinvault/internal/domain/model"
)

func (r *runner) newEntryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "entry",
		Aliases: []string{"entries"},
		Short:   "Manage vault entries (requires an unlocked vault)",
	}
	cmd.AddCommand(
		r.newEntryAddCommand(),
		r.newEntryListCommand(),
		r.newEntryGetCommand(),
		r.newEntryUpdateCommand(),
		r.newEntryDeleteCommand(),
	)
	return cmd
}

func (r *runner) newEntryAddCommand() *cobra.Command {
	var in model.EntryInput
	var generate bool
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := r.unlocked(cmd.Context())
			if err != nil {
				return err
			}

			switch {
			case generate:
				in.Password, err = application.GeneratePassword(application.DefaultPasswordOptions())
				if err != nil {
					return err
				}
			case in.Password == "":
				in.Password, err = r.readSecret("Password: ")
				if err != nil {
					return err
				}
			}
			if err := in.Validate(); err != nil {
				return err
			}

			var id string
			err = r.withSpinner("Saving entry...", func() error {
				id, err = deps.Credentials.AddEntry(cmd.Context(), in)
				return err
			})
			if err != nil {
				return err
			}

			if r.json {
				return r.printJSON(map[string]string{"id": id})
			}
			r.success("Entry added: " + id)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "entry title (required)")
	cmd.Flags().StringVar(&in.Username, "username", "", "account username (required)")
	cmd.Flags().StringVar(&in.Password, "password", "", "account password; prompted when omitted")
	cmd.Flags().StringVar(&in.Website, "website", "", "website URL")
	cmd.Flags().StringVar(&in.Notes, "notes", "", "free-form notes")
	cmd.Flags().StringVar(&in.Category, "category", "", "category id (see 'pinvaultctl categories')")
	cmd.Flags().BoolVar(&generate, "generate", false, "generate a 12-character password")
	return cmd
}

func (r *runner) newEntryListCommand() *cobra.Command {
	var showPasswords bool
	var category string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := r.unlocked(cmd.Context())
			if err != nil {
				return err
			}

			var entries []model.Entry
			err = r.withSpinner("Loading entries...", func() error {
				entries, err = deps.Credentials.ListEntries(cmd.Context(), deps.Credentials.OwnerID())
				return err
			})
			if err != nil {
				return err
			}

			if category != "" {
				filtered := entries[:0]
				for _, e := range entries {
					if e.Category == category {
						filtered = append(filtered, e)
					}
				}
				entries = filtered
			}

			if r.json {
				out := make([]entryJSON, 0, len(entries))
				for _, e := range entries {
					out = append(out, toEntryJSON(e, showPasswords))
				}
				return r.printJSON(out)
			}

			if len(entries) == 0 {
				fmt.Fprintln(r.opts.Out, infoMark()+" No entries yet; add one with 'pinvaultctl entry add'")
				return nil
			}
			for _, e := range entries {
				password := passwordMask
				if showPasswords {
					password = e.Password
				}
				r.printf("%-36s  %-24s  %-24s  %-16s  %s\n", e.ID, e.Title, e.Username, categoryLabel(e.Category), password)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showPasswords, "show-passwords", false, "print passwords in plaintext")
	cmd.Flags().StringVar(&category, "category", "", "only list entries in this category id")
	return cmd
}

func (r *runner) newEntryGetCommand() *cobra.Command {
	var showPassword bool
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := r.unlocked(cmd.Context())
			if err != nil {
				return err
			}

			var entry model.Entry
			err = r.withSpinner("Loading entry...", func() error {
				entry, err = deps.Credentials.GetEntry(cmd.Context(), args[0])
				return err
			})
			if err != nil {
				return entryError(args[0], err)
			}

			if r.json {
				return r.printJSON(toEntryJSON(entry, showPassword))
			}
			r.printEntry(entry, showPassword)
			return nil
		},
	}
	cmd.Flags().BoolVar(&showPassword, "show-password", false, "print the password in plaintext")
	return cmd
}

func (r *runner) newEntryUpdateCommand() *cobra.Command {
	var promptPassword bool
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of an entry; unset flags are left alone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := r.unlocked(cmd.Context())
			if err != nil {
				return err
			}

			upd := changedFields(cmd.Flags())
			if promptPassword {
				password, err := r.readSecret("New password: ")
				if err != nil {
					return err
				}
				upd.Password = &password
			}
			if upd.IsEmpty() {
				return errors.New("nothing to update; pass at least one field flag")
			}
			if (upd.Title != nil && *upd.Title == "") || (upd.Username != nil && *upd.Username == "") {
				return fmt.Errorf("title and username cannot be empty: %w", model.ErrMissingField)
			}

			err = r.withSpinner("Saving entry...", func() error {
				return deps.Credentials.UpdateEntry(cmd.Context(), args[0], upd)
			})
			if err != nil {
				return entryError(args[0], err)
			}
			r.success("Entry updated")
			return nil
		},
	}
	cmd.Flags().String("title", "", "new title")
	cmd.Flags().String("username", "", "new username")
	cmd.Flags().String("password", "", "new password; an empty value is ignored")
	cmd.Flags().String("website", "", "new website URL")
	cmd.Flags().String("notes", "", "new notes")
	cmd.Flags().String("category", "", "new category id")
	cmd.Flags().BoolVar(&promptPassword, "prompt-password", false, "read the new password from a prompt")
	return cmd
}

// changedFields builds an update from the field flags set on the command line.
func changedFields(flags *pflag.FlagSet) model.EntryUpdate {
	var upd model.EntryUpdate
	flags.Visit(func(f *pflag.Flag) {
		v := f.Value.String()
		switch f.Name {
		case "title":
			upd.Title = &v
		case "username":
			upd.Username = &v
		case "password":
			upd.Password = &v
		case "website":
			upd.Website = &v
		case "notes":
			upd.Notes = &v
		case "category":
			upd.Category = &v
		}
	})
	return upd
}

func (r *runner) newEntryDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete an entry",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := r.unlocked(cmd.Context())
			if err != nil {
				return err
			}
			err = r.withSpinner("Deleting entry...", func() error {
				return deps.Credentials.DeleteEntry(cmd.Context(), args[0])
			})
			if err != nil {
				return err
			}
			r.success("Entry deleted")
			return nil
		},
	}
}

func entryError(id string, err error) error {
	if errors.Is(err, application.ErrEntryNotFound) {
		return fmt.Errorf("no entry with id %q", id)
	}
	return err
}
