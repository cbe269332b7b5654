package secret

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coffersec/coffer/internal/cofferctl/util"
)

func newUnshareCommand() *cobra.Command {
	var (
		principal   string
		principalID string
	)

	cmd := &cobra.Command{
		Use:   "unshare NAME",
		Short: "Revoke a grant on a secret",
		Long: `Revoke a principal's grant on a secret. Requires write access.
Removing a grant that does not exist is not an error.`,
		Example: `  # Stop sharing with the whole organization
  cofferctl secret unshare db-password --principal=org

  # Revoke a team's grant
  cofferctl secret unshare db-password --principal=team --id=8a4f...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := util.GetClientFromCommand(cmd)
			if err != nil {
				return err
			}

			if err := c.UnshareSecret(cmd.Context(), args[0], principal, principalID); err != nil {
				return fmt.Errorf("error revoking grant: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Grant for %s removed from %q\n", describePrincipal(principal, principalID), args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&principal, "principal", "", "Principal kind: org, team or user (required)")
	cmd.Flags().StringVar(&principalID, "id", "", "Team or user id; omit for org grants")

	cmd.MarkFlagRequired("principal")

	return cmd
}
