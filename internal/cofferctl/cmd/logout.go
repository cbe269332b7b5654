package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coffersec/coffer/internal/cofferctl/client"
	"github.com/coffersec/coffer/internal/cofferctl/util"
)

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and revoke the cached session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := util.LoadConfigFromCommand(cmd)
			if err != nil {
				return err
			}
			if cfg.RefreshToken == "" && cfg.AccessToken == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}

			// Best effort revocation; local credentials are cleared
			// either way
			if cfg.Server != "" && cfg.RefreshToken != "" {
				c, err := client.NewClient(
					cfg.Server,
					client.WithTokens(cfg.AccessToken, cfg.RefreshToken),
					client.WithDeviceID(cfg.DeviceID),
				)
				if err == nil {
					if err := c.Logout(cmd.Context()); err != nil {
						fmt.Fprintln(cmd.ErrOrStderr(), "warning: server revocation failed:", err)
					}
				}
			}

			cfg.ClearCredentials()
			if err := cfg.Save(); err != nil {
				return fmt.Errorf("error saving config: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}
