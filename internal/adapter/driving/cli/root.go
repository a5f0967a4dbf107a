// Package cli is the command-line driving adapter for the vault.
package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ericfisherdev/pinvault/internal/application"
)

// Deps are the services every command runs against.
type Deps struct {
	Gate        *application.AccessGate
	Credentials *application.CredentialService
	Logger      *zap.Logger
}

// OpenFunc builds Deps on first use. The returned close function is called
// once the command finishes.
type OpenFunc func(ctx context.Context, verbose bool) (*Deps, func() error, error)

// Options configures the root command.
type Options struct {
	In   io.Reader
	Out  io.Writer
	Err  io.Writer
	Open OpenFunc
	// Args overrides os.Args[1:] when non-nil.
	Args []string
}

// ErrLocked is returned by entry commands when the vault is locked.
var ErrLocked = errors.New("vault is locked; run 'pinvaultctl unlock' first")

// runner holds per-invocation state shared by all commands.
type runner struct {
	opts    Options
	verbose bool
	json    bool

	deps    *Deps
	closeFn func() error
	lines   *bufio.Reader
}

// NewRootCommand builds the pinvaultctl command tree. Dependencies opened
// by a successful command are released when it returns; use Execute to also
// release them after a failure.
func NewRootCommand(opts Options) *cobra.Command {
	root, _ := newRoot(opts)
	return root
}

// Execute runs the command tree and always releases opened dependencies.
func Execute(ctx context.Context, opts Options) error {
	root, r := newRoot(opts)
	err := root.ExecuteContext(ctx)
	return errors.Join(err, r.close())
}

func newRoot(opts Options) (*cobra.Command, *runner) {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	r := &runner{opts: opts}

	root := &cobra.Command{
		Use:   "pinvaultctl",
		Short: "pinvaultctl - a PIN-locked local password vault.",
		Long: `pinvaultctl manages a local password vault locked behind a 4-digit PIN
or the host's fingerprint reader.

Entries are stored with their passwords encrypted. Unlock the vault with
'pinvaultctl unlock' before working with entries.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return r.close()
		},
	}
	root.SetIn(opts.In)
	root.SetOut(opts.Out)
	root.SetErr(opts.Err)
	if opts.Args != nil {
		root.SetArgs(opts.Args)
	}

	root.PersistentFlags().BoolVarP(&r.verbose, "verbose", "v", false, "enable verbose output")
	root.PersistentFlags().BoolVar(&r.json, "json", false, "output in JSON format")

	root.AddCommand(
		r.newPINCommand(),
		r.newUnlockCommand(),
		r.newLogoutCommand(),
		r.newEntryCommand(),
		r.newGenerateCommand(),
		r.newStrengthCommand(),
		r.newCategoriesCommand(),
	)
	return root, r
}

// open builds the dependencies once per invocation.
func (r *runner) open(ctx context.Context) (*Deps, error) {
	if r.deps != nil {
		return r.deps, nil
	}
	deps, closeFn, err := r.opts.Open(ctx, r.verbose)
	if err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	r.deps, r.closeFn = deps, closeFn
	return deps, nil
}

func (r *runner) close() error {
	if r.closeFn == nil {
		return nil
	}
	fn := r.closeFn
	r.closeFn = nil
	return fn()
}

// unlocked opens the dependencies and fails with ErrLocked unless the
// session flag is set.
func (r *runner) unlocked(ctx context.Context) (*Deps, error) {
	deps, err := r.open(ctx)
	if err != nil {
		return nil, err
	}
	ok, err := deps.Gate.IsAuthenticated(ctx)
	if err != nil {
		deps.Logger.Debug("session check failed", zap.Error(err))
	}
	if !ok {
		return nil, ErrLocked
	}
	return deps, nil
}
