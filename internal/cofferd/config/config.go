// Package config provides configuration management for the Coffer server
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the server
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Redis     RedisConfig     `yaml:"redis"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
	TLSCert      string        `yaml:"tlsCert"`
	TLSKey       string        `yaml:"tlsKey"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// AuthConfig holds authentication settings
type AuthConfig struct {
	// TokenSigningKey is the HMAC secret for access tokens
	TokenSigningKey string        `yaml:"tokenSigningKey"`
	AccessTokenTTL  time.Duration `yaml:"accessTokenTTL"`
	RefreshTokenTTL time.Duration `yaml:"refreshTokenTTL"`
	// DefaultOrgName is the organization new users are assigned to
	DefaultOrgName string `yaml:"defaultOrgName"`
	// AdminImplicitAccess grants org admins full read/write on all
	// secrets in their org without explicit ACL entries
	AdminImplicitAccess bool        `yaml:"adminImplicitAccess"`
	OAuth               OAuthConfig `yaml:"oauth"`
}

// OAuthConfig holds upstream provider credentials for the device flow
type OAuthConfig struct {
	ClientID     string `yaml:"clientId"`
	ClientSecret string `yaml:"clientSecret"`
}

// RateLimitConfig holds poll rate limiting settings
type RateLimitConfig struct {
	// PollWindow is the fixed window applied to device login polling
	PollWindow time.Duration `yaml:"pollWindow"`
	// PollLimit is the number of polls allowed per window
	PollLimit int `yaml:"pollLimit"`
}

// RedisConfig holds optional Redis settings for the rate limit store.
// When Addr is empty the server uses the in-memory store.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Load builds configuration from defaults overlaid with environment variables
func Load() (*Config, error) {
	cfg := defaults()
	cfg.overlayEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Name:            "coffer",
			User:            "coffer",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Auth: AuthConfig{
			AccessTokenTTL:      15 * time.Minute,
			RefreshTokenTTL:     30 * 24 * time.Hour,
			DefaultOrgName:      "default",
			AdminImplicitAccess: true,
		},
		RateLimit: RateLimitConfig{
			PollWindow: 10 * time.Second,
			PollLimit:  5,
		},
	}
}

// overlayEnv overlays environment variables on top of file-based config
func (c *Config) overlayEnv() {
	// Server config
	if host := getEnv("COFFER_SERVER_HOST", ""); host != "" {
		c.Server.Host = host
	}
	if port := getEnvAsInt("COFFER_SERVER_PORT", 0); port != 0 {
		c.Server.Port = port
	}
	if readTimeout := getEnvAsDuration("COFFER_SERVER_READ_TIMEOUT", 0); readTimeout != 0 {
		c.Server.ReadTimeout = readTimeout
	}
	if writeTimeout := getEnvAsDuration("COFFER_SERVER_WRITE_TIMEOUT", 0); writeTimeout != 0 {
		c.Server.WriteTimeout = writeTimeout
	}
	if tlsCert := getEnv("COFFER_TLS_CERT", ""); tlsCert != "" {
		c.Server.TLSCert = tlsCert
	}
	if tlsKey := getEnv("COFFER_TLS_KEY", ""); tlsKey != "" {
		c.Server.TLSKey = tlsKey
	}

	// Database config - check multiple env var names
	if host := getEnvMulti([]string{"COFFER_DB_HOST", "DB_HOST", "POSTGRES_HOST"}, ""); host != "" {
		c.Database.Host = host
	}
	if port := getEnvAsIntMulti([]string{"COFFER_DB_PORT", "DB_PORT", "POSTGRES_PORT"}, 0); port != 0 {
		c.Database.Port = port
	}
	if name := getEnvMulti([]string{"COFFER_DB_NAME", "DB_NAME", "POSTGRES_DB"}, ""); name != "" {
		c.Database.Name = name
	}
	if user := getEnvMulti([]string{"COFFER_DB_USER", "DB_USER", "POSTGRES_USER"}, ""); user != "" {
		c.Database.User = user
	}
	if password := getEnvMulti([]string{"COFFER_DB_PASSWORD", "DB_PASSWORD", "POSTGRES_PASSWORD"}, ""); password != "" {
		c.Database.Password = password
	}
	if sslmode := getEnv("COFFER_DB_SSLMODE", ""); sslmode != "" {
		c.Database.SSLMode = sslmode
	}

	// Auth config
	if key := getEnv("COFFER_AUTH_TOKEN_KEY", ""); key != "" {
		c.Auth.TokenSigningKey = key
	}
	if ttl := getEnvAsDuration("COFFER_AUTH_ACCESS_TOKEN_TTL", 0); ttl != 0 {
		c.Auth.AccessTokenTTL = ttl
	}
	if ttl := getEnvAsDuration("COFFER_AUTH_REFRESH_TOKEN_TTL", 0); ttl != 0 {
		c.Auth.RefreshTokenTTL = ttl
	}
	if org := getEnv("COFFER_AUTH_DEFAULT_ORG", ""); org != "" {
		c.Auth.DefaultOrgName = org
	}
	if v, ok := os.LookupEnv("COFFER_AUTH_ADMIN_IMPLICIT"); ok {
		c.Auth.AdminImplicitAccess = v == "1" || v == "true"
	}
	if id := getEnv("COFFER_OAUTH_CLIENT_ID", ""); id != "" {
		c.Auth.OAuth.ClientID = id
	}
	if secret := getEnv("COFFER_OAUTH_CLIENT_SECRET", ""); secret != "" {
		c.Auth.OAuth.ClientSecret = secret
	}

	// Rate limit config
	if window := getEnvAsDuration("COFFER_RATELIMIT_POLL_WINDOW", 0); window != 0 {
		c.RateLimit.PollWindow = window
	}
	if limit := getEnvAsInt("COFFER_RATELIMIT_POLL_LIMIT", 0); limit != 0 {
		c.RateLimit.PollLimit = limit
	}

	// Redis config
	if addr := getEnv("COFFER_REDIS_ADDR", ""); addr != "" {
		c.Redis.Addr = addr
	}
	if password := getEnv("COFFER_REDIS_PASSWORD", ""); password != "" {
		c.Redis.Password = password
	}
	if db := getEnvAsInt("COFFER_REDIS_DB", 0); db != 0 {
		c.Redis.DB = db
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvMulti(keys []string, fallback string) string {
	for _, key := range keys {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvAsIntMulti(keys []string, fallback int) int {
	for _, key := range keys {
		if v, ok := os.LookupEnv(key); ok {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
