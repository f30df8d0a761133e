package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Sync        SyncConfig        `toml:"sync"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
//
// UserID is filled in after a successful authorization and names the
// account whose listening data commands operate on by default.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	UserID       string `toml:"user_id"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// SyncConfig contains profile sync tuning knobs.
type SyncConfig struct {
	// FreshnessSeconds is the maximum age of cached data before a sync refetches.
	FreshnessSeconds int `toml:"freshness_seconds"`
	// FeatureBatchSize is the number of track IDs per audio-features call (API ceiling is 100).
	FeatureBatchSize int `toml:"feature_batch_size"`
	// FeatureWorkers bounds concurrent audio-feature batch calls.
	FeatureWorkers int `toml:"feature_workers"`
	// RateLimit is the maximum audio-feature requests per second.
	RateLimit float64 `toml:"rate_limit"`
	// TopItemLimit is the number of items requested per top-tracks/artists window.
	TopItemLimit int `toml:"top_item_limit"`
}

// ServerConfig contains OAuth callback server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
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

	config.applyDefaults()
	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.applyDefaults()
	return &config
}

// SaveConfig writes the configuration back to a TOML file at the specified path.
func SaveConfig(path string, config *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
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

func (c *Config) applyDefaults() {
	if c.Sync.FreshnessSeconds <= 0 {
		c.Sync.FreshnessSeconds = 3600
	}
	if c.Sync.FeatureBatchSize <= 0 || c.Sync.FeatureBatchSize > 100 {
		c.Sync.FeatureBatchSize = 100
	}
	if c.Sync.FeatureWorkers <= 0 {
		c.Sync.FeatureWorkers = 4
	}
	if c.Sync.FeatureWorkers > 10 {
		c.Sync.FeatureWorkers = 10
	}
	if c.Sync.RateLimit <= 0 {
		c.Sync.RateLimit = 5.0
	}
	if c.Sync.TopItemLimit <= 0 || c.Sync.TopItemLimit > 50 {
		c.Sync.TopItemLimit = 50
	}
}
