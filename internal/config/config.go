// Package config handles the global configuration file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents configuration stored in ~/.config/graphset/config.yml.
// Every field is optional: zero values fall back to built-in defaults.
type Config struct {
	DataHome  string  `yaml:"data_home,omitempty"`       // Cache root for downloaded datasets
	NetSetURL string  `yaml:"netset_url,omitempty"`      // NetSet catalog endpoint
	KonectURL string  `yaml:"konect_url,omitempty"`      // Konect collection endpoint
	Timeout   int     `yaml:"timeout_seconds,omitempty"` // HTTP timeout in seconds
	RateLimit float64 `yaml:"rate_limit,omitempty"`      // Requests per second against a catalog
}

const (
	// ConfigDir is the directory name under XDG_CONFIG_HOME.
	ConfigDir = "graphset"
	// ConfigFile is the config file name.
	ConfigFile = "config.yml"
)

// Environment variables that override file values.
const (
	EnvDataHome  = "GRAPHSET_DATA"
	EnvNetSetURL = "GRAPHSET_NETSET_URL"
	EnvKonectURL = "GRAPHSET_KONECT_URL"
)

// configCache caches the loaded config.
var configCache *Config

// Path returns the path to the config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/graphset/config.yml.
func Path() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, ConfigDir, ConfigFile)
}

// Load reads the configuration file.
// Returns an empty config (not an error) if the file doesn't exist.
// Environment overrides are applied at the point of use via GetConfigValue,
// so Save never persists them.
func Load() (*Config, error) {
	if configCache != nil {
		return configCache, nil
	}

	cfg := &Config{}
	if path := Path(); path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config: %w", err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if cfg.DataHome != "" {
		cfg.DataHome = ExpandPath(cfg.DataHome)
	}

	configCache = cfg
	return cfg, nil
}

// ResetCache clears the cached config.
// Useful for testing.
func ResetCache() {
	configCache = nil
}

// GetConfigValue returns the environment variable value if set, otherwise
// the config file value.
func GetConfigValue(envKey, configValue string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return configValue
}

// Save writes the configuration file, creating its directory if needed.
func (c *Config) Save() error {
	path := Path()
	if path == "" {
		return errors.New("cannot resolve config path")
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// ErrBadEndpoint is returned for catalog endpoints that are not absolute
// http or https URLs.
var ErrBadEndpoint = errors.New("endpoint must be an absolute http or https URL")

// ValidateEndpoint checks a catalog endpoint override.
func ValidateEndpoint(raw string) error {
	if raw == "" {
		return nil // Empty falls back to the default endpoint
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %s", ErrBadEndpoint, raw)
	}
	return nil
}

// ValidateDataHome checks that a data home override is usable. A path that
// doesn't exist yet is fine: it is created on first use.
func ValidateDataHome(path string) error {
	if path == "" {
		return nil // Empty falls back to the default cache directory
	}

	expanded := ExpandPath(path)
	info, err := os.Stat(expanded)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("checking data home: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data home is not a directory: %s", expanded)
	}
	return nil
}

// ValidateTimeout checks the HTTP timeout in seconds.
func ValidateTimeout(seconds int) error {
	if seconds < 0 {
		return fmt.Errorf("timeout_seconds must not be negative: %d", seconds)
	}
	return nil
}

// ValidateRateLimit checks the request rate in requests per second.
func ValidateRateLimit(perSecond float64) error {
	if perSecond < 0 {
		return fmt.Errorf("rate_limit must not be negative: %g", perSecond)
	}
	return nil
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original if we can't get home directory
	}

	return filepath.Join(home, path[1:])
}
