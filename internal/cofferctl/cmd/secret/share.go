package secret

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/coffersec/coffer/api/types/v1alpha1"
	"github.com/coffersec/coffer/internal/cofferctl/util"
)

func newShareCommand() *cobra.Command {
	var (
		principal   string
		principalID string
		read        bool
		write       bool
	)

	cmd := &cobra.Command{
		Use:   "share NAME",
		Short: "Grant access to a secret",
		Long: `Grant a principal access to a secret. Requires write access.

A grant names a principal kind (org, team or user) and, for teams and
users, the principal's id. Sharing with the same principal again
replaces its previous grant.`,
		Example: `  # Share read access with everyone in the organization
  cofferctl secret share db-password --principal=org --read

  # Give a team read and write access
  cofferctl secret share db-password --principal=team --id=8a4f... --read --write`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry := v1alpha1.AclEntry{
				Principal: principal,
				CanRead:   read,
				CanWrite:  write,
			}
			if principalID != "" {
				id, err := uuid.Parse(principalID)
				if err != nil {
					return fmt.Errorf("invalid principal id %q", principalID)
				}
				entry.PrincipalID = &id
			}

			c, err := util.GetClientFromCommand(cmd)
			if err != nil {
				return err
			}

			if err := c.ShareSecret(cmd.Context(), args[0], entry); err != nil {
				return fmt.Errorf("error sharing secret: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Secret %q shared with %s\n", args[0], describePrincipal(principal, principalID))
			return nil
		},
	}

	cmd.Flags().StringVar(&principal, "principal", "", "Principal kind: org, team or user (required)")
	cmd.Flags().StringVar(&principalID, "id", "", "Team or user id; omit for org grants")
	cmd.Flags().BoolVar(&read, "read", false, "Grant read access")
	cmd.Flags().BoolVar(&write, "write", false, "Grant write access")

	cmd.MarkFlagRequired("principal")

	return cmd
}

func describePrincipal(principal, principalID string) string {
	if principalID == "" {
		return principal
	}
	return fmt.Sprintf("%s %s", principal, principalID)
}
