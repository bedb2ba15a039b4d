package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Services  ServicesConfig  `toml:"services"`
	Discovery DiscoveryConfig `toml:"discovery"`
	Matcher   MatcherConfig   `toml:"matcher"`
	Sync      SyncConfig      `toml:"sync"`
	Database  DatabaseConfig  `toml:"database"`
}

// ServicesConfig contains per-service remote API settings.
type ServicesConfig struct {
	Similarity ServiceConfig `toml:"similarity"`
	Acoustic   ServiceConfig `toml:"acoustic"`
}

// ServiceConfig contains connection and throttling settings for one remote service.
type ServiceConfig struct {
	APIKey        string `toml:"api_key"`
	BaseURL       string `toml:"base_url"`
	MinIntervalMS int    `toml:"min_interval_ms"`
	MaxAttempts   int    `toml:"max_attempts"`
	BackoffBaseMS int    `toml:"backoff_base_ms"`
	BackoffMaxMS  int    `toml:"backoff_max_ms"`
	TimeoutMS     int    `toml:"timeout_ms"`
}

// MinInterval returns the minimum spacing between requests to this service.
func (s ServiceConfig) MinInterval() time.Duration {
	return time.Duration(s.MinIntervalMS) * time.Millisecond
}

// BackoffBase returns the initial backoff delay after a throttling signal.
func (s ServiceConfig) BackoffBase() time.Duration {
	return time.Duration(s.BackoffBaseMS) * time.Millisecond
}

// BackoffMax returns the cap on the exponential backoff delay.
func (s ServiceConfig) BackoffMax() time.Duration {
	return time.Duration(s.BackoffMaxMS) * time.Millisecond
}

// Timeout returns the per-request HTTP timeout.
func (s ServiceConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutMS) * time.Millisecond
}

// DiscoveryConfig contains candidate generation settings.
type DiscoveryConfig struct {
	CandidateLimit int    `toml:"candidate_limit"`
	SeedTrackLimit int    `toml:"seed_track_limit"`
	FallbackMode   string `toml:"fallback_mode"`
}

// MatcherConfig contains library matching settings.
type MatcherConfig struct {
	Threshold float64 `toml:"threshold"`
	BatchSize int     `toml:"batch_size"`
}

// SyncConfig contains playlist/queue write settings.
type SyncConfig struct {
	PlaylistName     string `toml:"playlist_name"`
	ParentPlaylist   string `toml:"parent_playlist"`
	QueueMode        bool   `toml:"queue_mode"`
	ClearBeforeWrite bool   `toml:"clear_before_write"`
}

// DatabaseConfig contains library database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
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
