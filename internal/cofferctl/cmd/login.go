package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/coffersec/coffer/internal/cofferctl/client"
	"github.com/coffersec/coffer/internal/cofferctl/util"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in to a Coffer server",
		Long: `Log in to a Coffer server using your identity provider.

The server hands back a short code. Open the verification URL in any
browser, enter the code, and approve the login. The command keeps
polling until you do, then stores the issued tokens in the CLI config.`,
		Example: `  # Log in to the configured server
  cofferctl login

  # Log in to a specific server
  cofferctl login --server=https://coffer.example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := util.LoadConfigFromCommand(cmd)
			if err != nil {
				return err
			}
			if cfg.Server == "" {
				return fmt.Errorf("no API server configured - pass --server or set COFFER_API_URL")
			}

			// A stable device identity ties refresh tokens to this
			// installation
			if cfg.DeviceID == "" {
				cfg.DeviceID = uuid.NewString()
			}

			c, err := client.NewClient(cfg.Server, client.WithDeviceID(cfg.DeviceID))
			if err != nil {
				return fmt.Errorf("failed to create API client: %w", err)
			}

			codes, err := c.StartLogin(cmd.Context())
			if err != nil {
				return fmt.Errorf("error starting login: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Open %s in a browser and enter the code:\n\n", codes.VerificationURI)
			fmt.Fprintf(cmd.OutOrStdout(), "    %s\n\n", codes.UserCode)
			fmt.Fprintln(cmd.OutOrStdout(), "Waiting for approval...")

			tokens, err := c.WaitForLogin(cmd.Context(), codes.DeviceCode, codes.PollInterval)
			if err != nil {
				return err
			}

			cfg.AccessToken = tokens.AccessToken
			cfg.RefreshToken = tokens.RefreshToken
			if err := cfg.Save(); err != nil {
				return fmt.Errorf("error saving credentials: %w", err)
			}

			if tokens.User != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", tokens.User.DisplayName, tokens.User.Email)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Logged in")
			}
			return nil
		},
	}
}
