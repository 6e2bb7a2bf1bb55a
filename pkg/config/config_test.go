package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := LoadDefaults()

	assert.Equal(t, "./data", cfg.Store.DataDir)
	assert.False(t, cfg.Store.InMemory)
	assert.False(t, cfg.Store.SyncWrites)
	assert.Equal(t, 5*time.Minute, cfg.Maintenance.GCInterval)
	assert.Equal(t, 0.5, cfg.Maintenance.GCDiscardRatio)
	assert.Equal(t, "INFO", cfg.Logging.Level)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("KIST_DATA_DIR", "/var/lib/kist")
	t.Setenv("KIST_SYNC_WRITES", "true")
	t.Setenv("KIST_GC_INTERVAL", "30s")
	t.Setenv("KIST_LOG_LEVEL", "debug")

	cfg := LoadFromEnv()

	assert.Equal(t, "/var/lib/kist", cfg.Store.DataDir)
	assert.True(t, cfg.Store.SyncWrites)
	assert.Equal(t, 30*time.Second, cfg.Maintenance.GCInterval)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kist.yaml")
	data := `
store:
  data_dir: /srv/kist
  low_memory: true
  encryption_passphrase: hunter2
maintenance:
  gc_interval: 2m
  gc_discard_ratio: 0.7
logging:
  level: warn
  engine: true
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/kist", cfg.Store.DataDir)
	assert.True(t, cfg.Store.LowMemory)
	assert.Equal(t, "hunter2", cfg.Store.EncryptionPassphrase)
	assert.Equal(t, 2*time.Minute, cfg.Maintenance.GCInterval)
	assert.Equal(t, 0.7, cfg.Maintenance.GCDiscardRatio)
	assert.Equal(t, "WARN", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Engine)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromFileMissingUsesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "./data", cfg.Store.DataDir)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kist.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  data_dir: /from/file\n"), 0o600))

	t.Setenv("KIST_DATA_DIR", "/from/env")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.Store.DataDir)
}

func TestLoadFromFileBadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kist.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store: [not, a, map"), 0o600))

	_, err := LoadFromFile(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults ok", func(*Config) {}, false},
		{"empty data dir", func(c *Config) { c.Store.DataDir = "" }, true},
		{"empty data dir in memory", func(c *Config) {
			c.Store.DataDir = ""
			c.Store.InMemory = true
		}, false},
		{"negative gc interval", func(c *Config) { c.Maintenance.GCInterval = -time.Second }, true},
		{"discard ratio too big", func(c *Config) { c.Maintenance.GCDiscardRatio = 1.5 }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "LOUD" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadDefaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStringRedactsPassphrase(t *testing.T) {
	cfg := LoadDefaults()
	cfg.Store.EncryptionPassphrase = "hunter2"

	s := cfg.String()
	assert.NotContains(t, s, "hunter2")
	assert.Contains(t, s, "Encryption: true")
}
