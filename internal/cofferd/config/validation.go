package config

import (
	"fmt"
	"time"
)

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if (c.Server.TLSCert != "") != (c.Server.TLSKey != "") {
		return fmt.Errorf("both TLS cert and key must be provided")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}
	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("invalid max open connections: %d", c.Database.MaxOpenConns)
	}
	if c.Database.MaxIdleConns < 1 {
		return fmt.Errorf("invalid max idle connections: %d", c.Database.MaxIdleConns)
	}
	if c.Auth.TokenSigningKey == "" {
		return fmt.Errorf("token signing key is required")
	}
	if c.Auth.AccessTokenTTL < 1*time.Minute {
		return fmt.Errorf("access token TTL must be at least 1 minute")
	}
	if c.Auth.RefreshTokenTTL < time.Hour {
		return fmt.Errorf("refresh token TTL must be at least 1 hour")
	}
	if c.Auth.OAuth.ClientID == "" || c.Auth.OAuth.ClientSecret == "" {
		return fmt.Errorf("oauth client credentials are required")
	}
	if c.RateLimit.PollWindow < time.Second {
		return fmt.Errorf("poll window must be at least 1 second")
	}
	if c.RateLimit.PollLimit < 1 {
		return fmt.Errorf("invalid poll limit: %d", c.RateLimit.PollLimit)
	}
	return nil
}
