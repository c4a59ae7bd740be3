package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// MaxWorkers caps [SyncConfig.Workers].
const MaxWorkers = 32

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Sync     SyncConfig     `toml:"sync"`
	Database DatabaseConfig `toml:"database"`
	Log      LogConfig      `toml:"log"`
}

// SyncConfig contains worker pool and transfer settings.
type SyncConfig struct {
	PreservePermissions bool  `toml:"preserve_permissions"`
	Workers             int   `toml:"workers"`
	QueueCapacity       int   `toml:"queue_capacity"`
	ProgressCapacity    int   `toml:"progress_capacity"`
	RateLimit           int64 `toml:"rate_limit"`
}

// DatabaseConfig contains run history database settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that numeric settings are within range.
func (c *Config) Validate() error {
	if c.Sync.Workers < 1 || c.Sync.Workers > MaxWorkers {
		return fmt.Errorf("%w: sync.workers must be between 1 and %d, got %d", ErrInvalidConfig, MaxWorkers, c.Sync.Workers)
	}
	if c.Sync.QueueCapacity < 0 {
		return fmt.Errorf("%w: sync.queue_capacity must not be negative", ErrInvalidConfig)
	}
	if c.Sync.ProgressCapacity < 0 {
		return fmt.Errorf("%w: sync.progress_capacity must not be negative", ErrInvalidConfig)
	}
	if c.Sync.RateLimit < 0 {
		return fmt.Errorf("%w: sync.rate_limit must not be negative", ErrInvalidConfig)
	}
	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}
