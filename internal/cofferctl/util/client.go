package util

import (
	"crypto/tls"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coffersec/coffer/internal/cofferctl/client"
	"github.com/coffersec/coffer/internal/cofferctl/config"
)

// LoadConfigFromCommand loads the CLI configuration honoring the
// --config persistent flag
func LoadConfigFromCommand(cmd *cobra.Command) (*config.Config, error) {
	cfgFile, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if server, _ := cmd.Root().PersistentFlags().GetString("server"); server != "" {
		cfg.Server = server
	}
	if apiURL := os.Getenv("COFFER_API_URL"); apiURL != "" && cfg.Server == "" {
		cfg.Server = apiURL
	}

	return cfg, nil
}

// GetClientFromCommand creates an API client from the command's
// configuration. Tokens refreshed during the request are written back
// to the config file so later invocations reuse them.
func GetClientFromCommand(cmd *cobra.Command) (*client.Client, error) {
	cfg, err := LoadConfigFromCommand(cmd)
	if err != nil {
		return nil, err
	}

	if cfg.Server == "" {
		return nil, fmt.Errorf("no API server configured - set COFFER_API_URL or pass --server")
	}
	if cfg.AccessToken == "" && os.Getenv("COFFER_AUTH_TOKEN") == "" {
		return nil, fmt.Errorf("not authenticated - run 'cofferctl login' first")
	}

	accessToken := os.Getenv("COFFER_AUTH_TOKEN")
	if accessToken == "" {
		accessToken = cfg.AccessToken
	}

	options := []client.ClientOption{
		client.WithTokens(accessToken, cfg.RefreshToken),
		client.WithDeviceID(cfg.DeviceID),
		client.WithTokenSink(func(accessToken, refreshToken string) {
			cfg.AccessToken = accessToken
			cfg.RefreshToken = refreshToken
			if err := cfg.Save(); err != nil {
				fmt.Fprintln(os.Stderr, "warning: failed to save credentials:", err)
			}
		}),
	}
	if cfg.InsecureSkipVerify {
		options = append(options, client.WithTLSConfig(&tls.Config{InsecureSkipVerify: true}))
	}

	c, err := client.NewClient(cfg.Server, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	return c, nil
}
