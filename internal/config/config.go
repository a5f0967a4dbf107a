// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Document store backends.
const (
	StoreSQLite    = "sqlite"
	StoreFirestore = "firestore"
	StoreMemory    = "memory"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr string
	DBPath     string
	SecretKey  []byte // 32-byte sealing key for the local secure store; nil leaves values unsealed.
	OwnerID    string

	DocumentStore     string
	FirestoreProject  string
	FirestoreAPIKey   string
	FirestoreDatabase string
	FirestoreBaseURL  string
	RemoteTimeout     time.Duration

	FieldCipher string
	Biometric   string
	CORSOrigins []string

	Env       string
	LogLevel  string
	LogFormat string
}

// IsProduction reports whether PINVAULT_ENV is "production".
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads configuration from environment variables and returns a validated Config.
// Variables from PINVAULT_ENV_FILE, or ./.env when present, are loaded first;
// variables already set in the environment win.
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	cfg := &Config{
		ListenAddr:        lookup("PINVAULT_LISTEN_ADDR", "127.0.0.1:8080"),
		DBPath:            lookup("PINVAULT_DB_PATH", "pinvault.db"),
		OwnerID:           lookup("PINVAULT_OWNER_ID", "default_user"),
		DocumentStore:     strings.ToLower(lookup("PINVAULT_DOCUMENT_STORE", StoreSQLite)),
		FirestoreProject:  os.Getenv("PINVAULT_FIRESTORE_PROJECT"),
		FirestoreAPIKey:   os.Getenv("PINVAULT_FIRESTORE_API_KEY"),
		FirestoreDatabase: lookup("PINVAULT_FIRESTORE_DATABASE", "(default)"),
		FirestoreBaseURL:  lookup("PINVAULT_FIRESTORE_BASE_URL", "https://firestore.googleapis.com"),
		RemoteTimeout:     10 * time.Second,
		FieldCipher:       strings.ToLower(lookup("PINVAULT_FIELD_CIPHER", "xor")),
		Biometric:         strings.ToLower(lookup("PINVAULT_BIOMETRIC", "none")),
		CORSOrigins:       splitList(os.Getenv("PINVAULT_CORS_ORIGINS")),
		Env:               strings.ToLower(lookup("PINVAULT_ENV", "development")),
		LogLevel:          strings.ToLower(lookup("PINVAULT_LOG_LEVEL", "info")),
		LogFormat:         strings.ToLower(lookup("PINVAULT_LOG_FORMAT", "console")),
	}

	if v, ok := os.LookupEnv("PINVAULT_REMOTE_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("PINVAULT_REMOTE_TIMEOUT has invalid duration %q: %w", v, err)
		}
		if parsed < 0 {
			return nil, fmt.Errorf("PINVAULT_REMOTE_TIMEOUT must not be negative, got %q", v)
		}
		cfg.RemoteTimeout = parsed
	}

	if v := os.Getenv("PINVAULT_SECRET_KEY"); v != "" {
		key, err := hex.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("PINVAULT_SECRET_KEY must be hex: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("PINVAULT_SECRET_KEY must decode to 32 bytes, got %d", len(key))
		}
		cfg.SecretKey = key
	}

	if err := oneOf("PINVAULT_DOCUMENT_STORE", cfg.DocumentStore, StoreSQLite, StoreFirestore, StoreMemory); err != nil {
		return nil, err
	}
	if err := oneOf("PINVAULT_FIELD_CIPHER", cfg.FieldCipher, "xor", "xchacha"); err != nil {
		return nil, err
	}
	if err := oneOf("PINVAULT_BIOMETRIC", cfg.Biometric, "none", "fprintd"); err != nil {
		return nil, err
	}
	if err := oneOf("PINVAULT_LOG_FORMAT", cfg.LogFormat, "console", "json"); err != nil {
		return nil, err
	}
	if err := oneOf("PINVAULT_LOG_LEVEL", cfg.LogLevel, "debug", "info", "warn", "error"); err != nil {
		return nil, err
	}

	if cfg.DocumentStore == StoreFirestore && cfg.FirestoreProject == "" {
		return nil, errors.New("PINVAULT_FIRESTORE_PROJECT is required when PINVAULT_DOCUMENT_STORE=firestore")
	}
	if cfg.OwnerID == "" {
		return nil, errors.New("PINVAULT_OWNER_ID must not be empty")
	}

	return cfg, nil
}

func loadEnvFile() error {
	if path, ok := os.LookupEnv("PINVAULT_ENV_FILE"); ok && path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load PINVAULT_ENV_FILE %q: %w", path, err)
		}
		return nil
	}
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return fmt.Errorf("load .env: %w", err)
		}
	}
	return nil
}

func lookup(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	out := []string{}
	for _, item := range strings.Split(v, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func oneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s has invalid value %q (want one of %s)", key, value, strings.Join(allowed, ", "))
}
