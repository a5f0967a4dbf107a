package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"

	"github.com/ericfisherdev/pinvault/internal/domain/model"
)

const passwordMask = "********"

func successMark() string { return color.GreenString("✓") }
func errorMark() string   { return color.RedString("✗") }
func infoMark() string    { return color.CyanString("→") }

// printJSON writes v as indented JSON to stdout.
func (r *runner) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(r.opts.Out, string(data))
	return err
}

// PrintError writes err to w behind the error mark.
func PrintError(w io.Writer, err error) {
	fmt.Fprintln(w, errorMark()+" "+err.Error())
}

func (r *runner) printf(format string, a ...any) {
	fmt.Fprintf(r.opts.Out, format, a...)
}

func (r *runner) success(msg string) {
	fmt.Fprintln(r.opts.Out, successMark()+" "+msg)
}

// withSpinner shows a spinner on stderr while fn runs. The spinner only
// appears on an interactive terminal and never in verbose or JSON mode.
func (r *runner) withSpinner(message string, fn func() error) error {
	if r.verbose || r.json || !isTerminal(r.opts.Err) {
		return fn()
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(r.opts.Err))
	s.Suffix = " " + message
	_ = s.Color("cyan")
	s.Start()
	defer s.Stop()
	return fn()
}

// entryJSON is the JSON shape of an entry on the CLI.
type entryJSON struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Username  string `json:"username"`
	Password  string `json:"password,omitempty"`
	Website   string `json:"website"`
	Notes     string `json:"notes"`
	Category  string `json:"category"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toEntryJSON(e model.Entry, showPassword bool) entryJSON {
	out := entryJSON{
		ID:        e.ID,
		Title:     e.Title,
		Username:  e.Username,
		Website:   e.Website,
		Notes:     e.Notes,
		Category:  e.Category,
		CreatedAt: formatTime(e.CreatedAt),
		UpdatedAt: formatTime(e.UpdatedAt),
	}
	if showPassword {
		out.Password = e.Password
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func categoryLabel(id string) string {
	if c, ok := model.CategoryByID(id); ok {
		return c.Name
	}
	return id
}

func (r *runner) printEntry(e model.Entry, showPassword bool) {
	password := passwordMask
	if showPassword {
		password = e.Password
	}
	r.printf("%-10s %s\n", "ID", e.ID)
	r.printf("%-10s %s\n", "Title", color.CyanString(e.Title))
	r.printf("%-10s %s\n", "Username", e.Username)
	r.printf("%-10s %s\n", "Password", password)
	r.printf("%-10s %s\n", "Website", e.Website)
	r.printf("%-10s %s\n", "Category", categoryLabel(e.Category))
	r.printf("%-10s %s\n", "Notes", e.Notes)
	r.printf("%-10s %s\n", "Updated", formatTime(e.UpdatedAt))
}
