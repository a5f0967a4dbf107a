// Package factory builds the vault's stores, access gate and services from
// a Config. Both the HTTP service and the CLI start from here.
package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/user"
	"sync"

	"go.uber.org/zap"

	"github.com/ericfisherdev/pinvault/internal/adapter/driven/biometric"
	"github.com/ericfisherdev/pinvault/internal/adapter/driven/firestore"
	"github.com/ericfisherdev/pinvault/internal/adapter/driven/memory"
	"github.com/ericfisherdev/pinvault/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/pinvault/internal/application"
	"github.com/ericfisherdev/pinvault/internal/config"
	"github.com/ericfisherdev/pinvault/internal/domain/port/driven"
)

// Factory owns every dependency of a running vault.
type Factory struct {
	config *config.Config
	logger *zap.Logger
	db     *sqlite.DB // nil for the memory backend.

	SecureStore driven.SecureStore
	Documents   driven.DocumentStore
	Biometric   driven.BiometricCapability

	Gate        *application.AccessGate
	Keys        *application.KeyManager
	Credentials *application.CredentialService

	closeOnce sync.Once
	closeErr  error
}

// New wires the vault described by cfg. promptOut receives the biometric
// prompt message when the backend shows none itself; it may be nil.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, promptOut io.Writer) (*Factory, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Factory{config: cfg, logger: logger}

	if err := f.initializeStores(ctx); err != nil {
		_ = f.Close()
		return nil, err
	}

	bio, err := biometric.New(cfg.Biometric, currentUser(), promptOut)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("biometric: %w", err)
	}
	f.Biometric = bio

	cipher, err := application.NewFieldCipher(cfg.FieldCipher)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("field cipher: %w", err)
	}

	f.Gate = application.NewAccessGate(f.SecureStore, f.Biometric, logger.Named("gate"))
	f.Keys = application.NewKeyManager(f.SecureStore, logger.Named("keys"))
	f.Credentials = application.NewCredentialService(
		f.Documents,
		f.Keys,
		cipher,
		cfg.OwnerID,
		cfg.RemoteTimeout,
		logger.Named("credentials"),
	)

	logger.Info("vault initialized",
		zap.String("document_store", cfg.DocumentStore),
		zap.String("field_cipher", cfg.FieldCipher),
		zap.String("biometric", cfg.Biometric),
		zap.Bool("secure_store_sealed", cfg.SecretKey != nil),
	)
	return f, nil
}

func (f *Factory) initializeStores(ctx context.Context) error {
	cfg := f.config

	if cfg.DocumentStore == config.StoreMemory {
		f.SecureStore = memory.NewSecureStore()
		f.Documents = memory.NewDocumentStore()
		f.logger.Warn("using in-memory stores; nothing will persist")
		return nil
	}

	db, err := sqlite.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	f.db = db

	if err := sqlite.RunMigrations(db.Writer); err != nil {
		return err
	}
	f.logger.Debug("database ready", zap.String("path", db.Path()))

	f.SecureStore = sqlite.NewSecureStore(db, cfg.SecretKey)

	switch cfg.DocumentStore {
	case config.StoreFirestore:
		client, err := firestore.NewClient(firestore.Config{
			ProjectID: cfg.FirestoreProject,
			Database:  cfg.FirestoreDatabase,
			APIKey:    cfg.FirestoreAPIKey,
			BaseURL:   cfg.FirestoreBaseURL,
		}, nil, f.logger.Named("firestore"))
		if err != nil {
			return err
		}
		f.Documents = client
	default:
		f.Documents = sqlite.NewDocumentRepo(db)
	}
	return nil
}

// Close releases the database. It is safe to call more than once.
func (f *Factory) Close() error {
	f.closeOnce.Do(func() {
		if f.db != nil {
			if err := f.db.Close(); err != nil {
				f.closeErr = errors.Join(f.closeErr, fmt.Errorf("close database: %w", err))
			}
		}
	})
	return f.closeErr
}

func currentUser() string {
	u, err := user.Current()
	if err != nil {
		return ""
	}
	return u.Username
}
