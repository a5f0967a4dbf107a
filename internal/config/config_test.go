package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every PINVAULT_ env var that Load() reads.
var allConfigKeys = []string{
	"PINVAULT_ENV_FILE",
	"PINVAULT_LISTEN_ADDR",
	"PINVAULT_DB_PATH",
	"PINVAULT_SECRET_KEY",
	"PINVAULT_OWNER_ID",
	"PINVAULT_DOCUMENT_STORE",
	"PINVAULT_FIRESTORE_PROJECT",
	"PINVAULT_FIRESTORE_API_KEY",
	"PINVAULT_FIRESTORE_DATABASE",
	"PINVAULT_FIRESTORE_BASE_URL",
	"PINVAULT_REMOTE_TIMEOUT",
	"PINVAULT_FIELD_CIPHER",
	"PINVAULT_BIOMETRIC",
	"PINVAULT_CORS_ORIGINS",
	"PINVAULT_ENV",
	"PINVAULT_LOG_LEVEL",
	"PINVAULT_LOG_FORMAT",
}

// isolateConfigEnv saves and unsets all PINVAULT_ env vars so tests don't
// inherit values from the host environment, and runs the test from an empty
// directory so no stray .env file is picked up.
// t.Cleanup restores original values after the test.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
	t.Chdir(t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "pinvault.db", cfg.DBPath)
	assert.Nil(t, cfg.SecretKey)
	assert.Equal(t, "default_user", cfg.OwnerID)
	assert.Equal(t, StoreSQLite, cfg.DocumentStore)
	assert.Equal(t, "(default)", cfg.FirestoreDatabase)
	assert.Equal(t, "https://firestore.googleapis.com", cfg.FirestoreBaseURL)
	assert.Equal(t, 10*time.Second, cfg.RemoteTimeout)
	assert.Equal(t, "xor", cfg.FieldCipher)
	assert.Equal(t, "none", cfg.Biometric)
	assert.Equal(t, []string{}, cfg.CORSOrigins)
	assert.Equal(t, "development", cfg.Env)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("PINVAULT_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("PINVAULT_DB_PATH", "/tmp/test.db")
	t.Setenv("PINVAULT_SECRET_KEY", strings.Repeat("ab", 32))
	t.Setenv("PINVAULT_OWNER_ID", "alice")
	t.Setenv("PINVAULT_DOCUMENT_STORE", "Firestore")
	t.Setenv("PINVAULT_FIRESTORE_PROJECT", "vault-prod")
	t.Setenv("PINVAULT_FIRESTORE_API_KEY", "k")
	t.Setenv("PINVAULT_REMOTE_TIMEOUT", "3s")
	t.Setenv("PINVAULT_FIELD_CIPHER", "xchacha")
	t.Setenv("PINVAULT_BIOMETRIC", "fprintd")
	t.Setenv("PINVAULT_CORS_ORIGINS", "http://localhost:3000, ,https://vault.example.com")
	t.Setenv("PINVAULT_ENV", "production")
	t.Setenv("PINVAULT_LOG_LEVEL", "debug")
	t.Setenv("PINVAULT_LOG_FORMAT", "json")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Len(t, cfg.SecretKey, 32)
	assert.Equal(t, "alice", cfg.OwnerID)
	assert.Equal(t, StoreFirestore, cfg.DocumentStore)
	assert.Equal(t, "vault-prod", cfg.FirestoreProject)
	assert.Equal(t, "k", cfg.FirestoreAPIKey)
	assert.Equal(t, 3*time.Second, cfg.RemoteTimeout)
	assert.Equal(t, "xchacha", cfg.FieldCipher)
	assert.Equal(t, "fprintd", cfg.Biometric)
	assert.Equal(t, []string{"http://localhost:3000", "https://vault.example.com"}, cfg.CORSOrigins)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"bad duration", map[string]string{"PINVAULT_REMOTE_TIMEOUT": "soon"}, "PINVAULT_REMOTE_TIMEOUT"},
		{"negative duration", map[string]string{"PINVAULT_REMOTE_TIMEOUT": "-1s"}, "PINVAULT_REMOTE_TIMEOUT"},
		{"non-hex secret", map[string]string{"PINVAULT_SECRET_KEY": "zz"}, "PINVAULT_SECRET_KEY"},
		{"short secret", map[string]string{"PINVAULT_SECRET_KEY": "abcd"}, "32 bytes"},
		{"unknown store", map[string]string{"PINVAULT_DOCUMENT_STORE": "mongo"}, "PINVAULT_DOCUMENT_STORE"},
		{"unknown cipher", map[string]string{"PINVAULT_FIELD_CIPHER": "rot13"}, "PINVAULT_FIELD_CIPHER"},
		{"unknown biometric", map[string]string{"PINVAULT_BIOMETRIC": "faceid"}, "PINVAULT_BIOMETRIC"},
		{"unknown log format", map[string]string{"PINVAULT_LOG_FORMAT": "xml"}, "PINVAULT_LOG_FORMAT"},
		{"unknown log level", map[string]string{"PINVAULT_LOG_LEVEL": "loud"}, "PINVAULT_LOG_LEVEL"},
		{"firestore without project", map[string]string{"PINVAULT_DOCUMENT_STORE": "firestore"}, "PINVAULT_FIRESTORE_PROJECT"},
		{"empty owner", map[string]string{"PINVAULT_OWNER_ID": ""}, "PINVAULT_OWNER_ID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateConfigEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()

			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_EnvFile(t *testing.T) {
	isolateConfigEnv(t)
	path := filepath.Join(t.TempDir(), "vault.env")
	require.NoError(t, os.WriteFile(path, []byte("PINVAULT_OWNER_ID=from-file\nPINVAULT_DB_PATH=file.db\n"), 0o600))
	t.Setenv("PINVAULT_ENV_FILE", path)
	t.Setenv("PINVAULT_DB_PATH", "env.db")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.OwnerID)
	assert.Equal(t, "env.db", cfg.DBPath, "variables already set win over the file")
}

func TestLoad_DotEnvInWorkingDir(t *testing.T) {
	isolateConfigEnv(t)
	require.NoError(t, os.WriteFile(".env", []byte("PINVAULT_LISTEN_ADDR=127.0.0.1:9999\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("PINVAULT_LISTEN_ADDR") })

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", cfg.ListenAddr)
}

func TestLoad_MissingEnvFile(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("PINVAULT_ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))

	_, err := Load()
	assert.Error(t, err)
}
