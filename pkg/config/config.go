// Package config handles Kist configuration via YAML files and environment
// variables.
//
// Configuration precedence (highest to lowest):
//  1. Command-line flags (--data-dir, --sync-writes, etc.)
//  2. Environment variables (KIST_*)
//  3. Config file (kist.yaml)
//  4. Built-in defaults
//
// Example usage:
//
//	cfg, err := config.LoadFromFile(config.FindConfigFile())
//	if err != nil {
//		log.Fatalf("Invalid config: %v", err)
//	}
//
//	fmt.Printf("Data dir: %s\n", cfg.Store.DataDir)
//
// Environment variables (all use the KIST_ prefix):
//
// Store:
//   - KIST_DATA_DIR="./data"
//   - KIST_IN_MEMORY=true
//   - KIST_SYNC_WRITES=true
//   - KIST_LOW_MEMORY=true
//   - KIST_ENCRYPTION_PASSPHRASE="secret"
//
// Maintenance:
//   - KIST_GC_INTERVAL=5m
//   - KIST_GC_DISCARD_RATIO=0.5
//
// Logging:
//   - KIST_LOG_LEVEL="INFO"
//   - KIST_LOG_ENGINE=true
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all Kist configuration.
//
// Use LoadFromFile or LoadFromEnv to create one, then Validate before use.
type Config struct {
	// Store holds storage engine settings.
	Store StoreConfig

	// Maintenance holds background maintenance settings.
	Maintenance MaintenanceConfig

	// Logging configuration.
	Logging LoggingConfig
}

// StoreConfig holds storage engine settings.
type StoreConfig struct {
	// DataDir is the directory for data storage.
	// Env: KIST_DATA_DIR
	DataDir string

	// InMemory keeps all data in RAM. DataDir is ignored when set.
	// Env: KIST_IN_MEMORY
	InMemory bool

	// SyncWrites forces fsync after every write transaction. Safer but
	// noticeably slower; opt in for critical data.
	// Env: KIST_SYNC_WRITES
	SyncWrites bool

	// LowMemory shrinks engine buffers for constrained environments.
	// Env: KIST_LOW_MEMORY
	LowMemory bool

	// EncryptionPassphrase enables encryption at rest when non-empty.
	// Env: KIST_ENCRYPTION_PASSPHRASE
	EncryptionPassphrase string
}

// MaintenanceConfig holds background maintenance settings.
type MaintenanceConfig struct {
	// GCInterval between value-log garbage collection runs. Zero disables
	// background GC.
	// Env: KIST_GC_INTERVAL
	GCInterval time.Duration

	// GCDiscardRatio passed to the engine's garbage collector. A file is
	// rewritten when at least this fraction of it is stale.
	// Env: KIST_GC_DISCARD_RATIO
	GCDiscardRatio float64
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is one of DEBUG, INFO, WARN, ERROR.
	// Env: KIST_LOG_LEVEL
	Level string

	// Engine forwards the storage engine's internal logging when true.
	// Env: KIST_LOG_ENGINE
	Engine bool
}

// yamlConfig mirrors the config file layout.
type yamlConfig struct {
	Store struct {
		DataDir              string `yaml:"data_dir"`
		InMemory             bool   `yaml:"in_memory"`
		SyncWrites           bool   `yaml:"sync_writes"`
		LowMemory            bool   `yaml:"low_memory"`
		EncryptionPassphrase string `yaml:"encryption_passphrase"`
	} `yaml:"store"`
	Maintenance struct {
		GCInterval     string  `yaml:"gc_interval"`
		GCDiscardRatio float64 `yaml:"gc_discard_ratio"`
	} `yaml:"maintenance"`
	Logging struct {
		Level  string `yaml:"level"`
		Engine bool   `yaml:"engine"`
	} `yaml:"logging"`
}

// LoadDefaults returns the built-in defaults.
func LoadDefaults() *Config {
	return &Config{
		Store: StoreConfig{
			DataDir: "./data",
		},
		Maintenance: MaintenanceConfig{
			GCInterval:     5 * time.Minute,
			GCDiscardRatio: 0.5,
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
	}
}

// LoadFromEnv builds a Config from defaults plus KIST_* environment
// variables.
func LoadFromEnv() *Config {
	cfg := LoadDefaults()
	applyEnvVars(cfg)
	return cfg
}

// LoadFromFile loads configPath (YAML), then overlays environment variables.
// A missing file is not an error; defaults plus env apply.
func LoadFromFile(configPath string) (*Config, error) {
	cfg := LoadDefaults()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvVars(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if yc.Store.DataDir != "" {
		cfg.Store.DataDir = yc.Store.DataDir
	}
	if yc.Store.InMemory {
		cfg.Store.InMemory = true
	}
	if yc.Store.SyncWrites {
		cfg.Store.SyncWrites = true
	}
	if yc.Store.LowMemory {
		cfg.Store.LowMemory = true
	}
	if yc.Store.EncryptionPassphrase != "" {
		cfg.Store.EncryptionPassphrase = yc.Store.EncryptionPassphrase
	}

	if yc.Maintenance.GCInterval != "" {
		if d, err := time.ParseDuration(yc.Maintenance.GCInterval); err == nil {
			cfg.Maintenance.GCInterval = d
		}
	}
	if yc.Maintenance.GCDiscardRatio > 0 {
		cfg.Maintenance.GCDiscardRatio = yc.Maintenance.GCDiscardRatio
	}

	if yc.Logging.Level != "" {
		cfg.Logging.Level = strings.ToUpper(yc.Logging.Level)
	}
	if yc.Logging.Engine {
		cfg.Logging.Engine = true
	}

	applyEnvVars(cfg)
	return cfg, nil
}

// FindConfigFile returns the first config file that exists among the usual
// locations, or "kist.yaml" when none does.
func FindConfigFile() string {
	candidates := []string{
		"kist.yaml",
		"kist.yml",
		filepath.Join("config", "kist.yaml"),
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".kist", "kist.yaml"))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return "kist.yaml"
}

func applyEnvVars(cfg *Config) {
	cfg.Store.DataDir = getEnv("KIST_DATA_DIR", cfg.Store.DataDir)
	cfg.Store.InMemory = getEnvBool("KIST_IN_MEMORY", cfg.Store.InMemory)
	cfg.Store.SyncWrites = getEnvBool("KIST_SYNC_WRITES", cfg.Store.SyncWrites)
	cfg.Store.LowMemory = getEnvBool("KIST_LOW_MEMORY", cfg.Store.LowMemory)
	cfg.Store.EncryptionPassphrase = getEnv("KIST_ENCRYPTION_PASSPHRASE", cfg.Store.EncryptionPassphrase)

	cfg.Maintenance.GCInterval = getEnvDuration("KIST_GC_INTERVAL", cfg.Maintenance.GCInterval)
	cfg.Maintenance.GCDiscardRatio = getEnvFloat("KIST_GC_DISCARD_RATIO", cfg.Maintenance.GCDiscardRatio)

	cfg.Logging.Level = strings.ToUpper(getEnv("KIST_LOG_LEVEL", cfg.Logging.Level))
	cfg.Logging.Engine = getEnvBool("KIST_LOG_ENGINE", cfg.Logging.Engine)
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if !c.Store.InMemory && c.Store.DataDir == "" {
		return fmt.Errorf("store: data_dir is required unless in_memory is set")
	}
	if c.Maintenance.GCInterval < 0 {
		return fmt.Errorf("maintenance: gc_interval must not be negative")
	}
	if r := c.Maintenance.GCDiscardRatio; r <= 0 || r > 1 {
		return fmt.Errorf("maintenance: gc_discard_ratio must be in (0, 1], got %v", r)
	}
	switch c.Logging.Level {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("logging: unknown level %q", c.Logging.Level)
	}
	return nil
}

// String returns a human-readable summary with secrets redacted.
func (c *Config) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Kist Configuration:\n")
	fmt.Fprintf(&b, "  Store:\n")
	fmt.Fprintf(&b, "    DataDir: %s\n", c.Store.DataDir)
	fmt.Fprintf(&b, "    InMemory: %v\n", c.Store.InMemory)
	fmt.Fprintf(&b, "    SyncWrites: %v\n", c.Store.SyncWrites)
	fmt.Fprintf(&b, "    LowMemory: %v\n", c.Store.LowMemory)
	fmt.Fprintf(&b, "    Encryption: %v\n", c.Store.EncryptionPassphrase != "")
	fmt.Fprintf(&b, "  Maintenance:\n")
	fmt.Fprintf(&b, "    GCInterval: %s\n", c.Maintenance.GCInterval)
	fmt.Fprintf(&b, "    GCDiscardRatio: %v\n", c.Maintenance.GCDiscardRatio)
	fmt.Fprintf(&b, "  Logging:\n")
	fmt.Fprintf(&b, "    Level: %s\n", c.Logging.Level)
	fmt.Fprintf(&b, "    Engine: %v\n", c.Logging.Engine)
	return b.String()
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
