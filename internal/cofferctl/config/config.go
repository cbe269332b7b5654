// Package config provides configuration management for the Coffer CLI
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds the CLI configuration, including the cached credentials
// from the most recent login
type Config struct {
	// Server is the API server URL
	Server string `mapstructure:"server"`
	// AccessToken is the bearer token for API requests
	AccessToken string `mapstructure:"access-token"`
	// RefreshToken renews the access token when it expires
	RefreshToken string `mapstructure:"refresh-token"`
	// DeviceID identifies this CLI installation to the server
	DeviceID string `mapstructure:"device-id"`
	// InsecureSkipVerify disables TLS verification
	InsecureSkipVerify bool `mapstructure:"insecure-skip-verify"`

	path string
}

// defaultConfigPath returns the default config file path
func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cofferctl/config.yaml"
	}
	return filepath.Join(home, ".cofferctl/config.yaml")
}

// Load reads the configuration from disk. A missing file is not an
// error; it yields an empty config that Save will create.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("COFFERCTL_CONFIG")
	}
	if path == "" {
		path = defaultConfigPath()
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	cfg.path = path

	return &cfg, nil
}

// Save writes the configuration to disk. The file is created with
// owner-only permissions because it holds tokens.
func (c *Config) Save() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(c.path)
	v.SetConfigType("yaml")
	v.Set("server", c.Server)
	v.Set("access-token", c.AccessToken)
	v.Set("refresh-token", c.RefreshToken)
	v.Set("device-id", c.DeviceID)
	v.Set("insecure-skip-verify", c.InsecureSkipVerify)

	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("error writing config: %w", err)
	}
	if err := os.Chmod(c.path, 0o600); err != nil {
		return fmt.Errorf("error setting config permissions: %w", err)
	}

	return nil
}

// ClearCredentials drops the cached tokens but keeps the server and
// device identity
func (c *Config) ClearCredentials() {
	c.AccessToken = ""
	c.RefreshToken = ""
}
