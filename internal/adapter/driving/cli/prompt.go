package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readSecret prompts for a value without echo when input is a terminal and
// otherwise reads the next line.
func (r *runner) readSecret(prompt string) (string, error) {
	if f, ok := r.opts.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(r.opts.Err, prompt)
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(r.opts.Err) // Add newline after hidden input
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return string(secret), nil
	}
	return r.readLine(prompt)
}

// readLine prompts on stderr and reads one line of input.
func (r *runner) readLine(prompt string) (string, error) {
	if r.lines == nil {
		r.lines = bufio.NewReader(r.opts.In)
	}
	fmt.Fprint(r.opts.Err, prompt)
	line, err := r.lines.ReadString('\n')
	switch {
	case err == nil:
	case errors.Is(err, io.EOF) && line != "":
		// Last line without a trailing newline.
	case errors.Is(err, io.EOF):
		return "", errors.New("unexpected end of input")
	default:
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
