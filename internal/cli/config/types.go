// Package config provides configuration management for the chartlink CLI.
package config

import (
	"time"

	"github.com/leapstack-labs/chartlink/internal/dataset"
)

// DatasetConfig is an alias for the dataset source configuration.
type DatasetConfig = dataset.Config

// UIConfig holds configuration for the UI server.
type UIConfig struct {
	Port     int  `koanf:"port"`
	AutoOpen bool `koanf:"auto_open"`
	Watch    bool `koanf:"watch"`
	Dev      bool `koanf:"dev"`
	// SessionSecret signs session cookies. Empty means a random key per run.
	SessionSecret string `koanf:"session_secret"`
	// SessionMaxAge is how long a session cookie stays valid ("24h").
	SessionMaxAge time.Duration `koanf:"session_max_age"`
	// WatchDebounce delays a reload after a dataset file changes ("100ms").
	WatchDebounce time.Duration `koanf:"watch_debounce"`
}

// DefaultUIConfig returns a UIConfig with default values.
func DefaultUIConfig() *UIConfig {
	return &UIConfig{
		Port:     DefaultPort,
		AutoOpen: true,
		Watch:    true,

		SessionMaxAge: DefaultSessionMaxAge,
		WatchDebounce: DefaultWatchDebounce,
	}
}

// GetUIConfig returns the UI config with defaults applied for any unset values.
func (c *Config) GetUIConfig() *UIConfig {
	if c.UI == nil {
		return DefaultUIConfig()
	}
	ui := c.UI
	if ui.Port == 0 {
		ui.Port = DefaultPort
	}
	if ui.SessionMaxAge == 0 {
		ui.SessionMaxAge = DefaultSessionMaxAge
	}
	if ui.WatchDebounce == 0 {
		ui.WatchDebounce = DefaultWatchDebounce
	}
	return ui
}

// Config holds all CLI configuration options.
type Config struct {
	Verbose   bool                     `koanf:"verbose"`
	Output    string                   `koanf:"output"`
	LogFormat string                   `koanf:"log_format"`
	UI        *UIConfig                `koanf:"ui"`
	Datasets  map[string]DatasetConfig `koanf:"datasets"`
}

// Default configuration values.
const (
	DefaultPort      = 8765
	DefaultOutput    = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogFormat = "text"
	EnvPrefix        = "CHARTLINK_"

	DefaultSessionMaxAge = 24 * time.Hour
	DefaultWatchDebounce = 100 * time.Millisecond
)

// ConfigFileNames are the file names searched for when no --config is given.
var ConfigFileNames = []string{"chartlink.yaml", "chartlink.yml"}
