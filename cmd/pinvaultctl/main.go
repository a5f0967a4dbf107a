package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ericfisherdev/pinvault/internal/adapter/driving/cli"
	"github.com/ericfisherdev/pinvault/internal/config"
	"github.com/ericfisherdev/pinvault/internal/factory"
	"github.com/ericfisherdev/pinvault/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx, cli.Options{Open: open})
	stop()
	if err != nil {
		cli.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

// open loads configuration and wires the vault. Logs stay at warn level
// unless --verbose is set.
func open(ctx context.Context, verbose bool) (*cli.Deps, func() error, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(cfg.Env, level, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}

	f, err := factory.New(ctx, cfg, logger, os.Stderr)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	logger.Debug("vault opened", zap.String("document_store", cfg.DocumentStore))

	closeFn := func() error {
		err := f.Close()
		_ = logger.Sync()
		return err
	}
	return &cli.Deps{Gate: f.Gate, Credentials: f.Credentials, Logger: logger}, closeFn, nil
}
