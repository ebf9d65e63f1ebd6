package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DriverBadger, cfg.Storage.Driver)
	assert.Equal(t, "sha256", cfg.Fingerprint.Algorithm)
	assert.Equal(t, "aibom", cfg.NATS.SubjectPrefix)
	assert.Equal(t, 30*time.Second, cfg.Traversal.Timeout)
	assert.Equal(t, 4, cfg.Verify.Concurrency)
	assert.False(t, cfg.Kubernetes.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORAGE_DRIVER", "Postgres")
	t.Setenv("FINGERPRINT_ALGORITHM", "BLAKE3")
	t.Setenv("TRAVERSAL_TIMEOUT", "2s")
	t.Setenv("VERIFY_RETRY_INTERVAL", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, "blake3", cfg.Fingerprint.Algorithm)
	assert.Equal(t, 2*time.Second, cfg.Traversal.Timeout)
	assert.Equal(t, 200*time.Millisecond, cfg.Verify.RetryInterval)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aibom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nats_url: nats://broker:4222\nk8s_enabled: true\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "nats://broker:4222", cfg.NATS.URL)
	assert.True(t, cfg.Kubernetes.Enabled)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "sqlite")
	_, err := Load()
	assert.ErrorContains(t, err, "STORAGE_DRIVER")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "aibom", Password: "p@ss", Name: "bom", SSLMode: "disable"}
	assert.Equal(t, "postgres://aibom:p%40ss@db:5432/bom?sslmode=disable", d.DSN())
}
