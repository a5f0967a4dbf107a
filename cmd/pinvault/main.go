package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"go.uber.org/zap"

	httphandler "github.com/ericfisherdev/pinvault/internal/adapter/driving/http"
	"github.com/ericfisherdev/pinvault/internal/config"
	"github.com/ericfisherdev/pinvault/internal/factory"
	"github.com/ericfisherdev/pinvault/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pinvault: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on invalid env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("config loaded",
		zap.String("listen_addr", cfg.ListenAddr),
		zap.String("document_store", cfg.DocumentStore),
		zap.String("db_path", cfg.DBPath),
		zap.String("field_cipher", cfg.FieldCipher),
		zap.String("biometric", cfg.Biometric),
		zap.Bool("sealed", cfg.SecretKey != nil),
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open stores and wire services. The daemon has no terminal, so
	// biometric prompt text goes to stderr alongside the logs.
	f, err := factory.New(ctx, cfg, logger, os.Stderr)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			logger.Error("error closing stores", zap.Error(closeErr))
		}
	}()

	// 4. Create HTTP handler and router.
	handler := httphandler.NewHandler(f.Gate, f.Credentials, logger)
	router := httphandler.NewRouter(handler, httphandler.RouterOptions{CORSOrigins: cfg.CORSOrigins}, logger)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	logger.Info("pinvault started", zap.String("owner_id", cfg.OwnerID))

	// 5. Wait for shutdown signal or a listener failure.
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	}

	// 6. Graceful shutdown with 10s timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}
