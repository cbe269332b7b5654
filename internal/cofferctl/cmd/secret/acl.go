package secret

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coffersec/coffer/internal/cofferctl/util"
)

func newACLCommand() *cobra.Command {
	var (
		output string
		viewAs string
	)

	cmd := &cobra.Command{
		Use:   "acl NAME",
		Short: "Show who a secret is shared with",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := util.GetClientFromCommand(cmd)
			if err != nil {
				return err
			}

			acls, err := c.ListACLs(cmd.Context(), args[0], viewAs)
			if err != nil {
				return fmt.Errorf("error listing grants: %w", err)
			}

			if output == "json" {
				return util.PrintJSON(cmd.OutOrStdout(), acls)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\nGrants on %q:\n", args[0])
			fmt.Fprintln(cmd.OutOrStdout(), strings.Repeat("-", 80))
			fmt.Fprintf(cmd.OutOrStdout(), "%-10s %-40s %s\n", "PRINCIPAL", "ID", "ACCESS")
			fmt.Fprintln(cmd.OutOrStdout(), strings.Repeat("-", 80))

			for _, entry := range acls {
				id := ""
				if entry.PrincipalID != nil {
					id = entry.PrincipalID.String()
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %-40s %s\n",
					entry.Principal,
					id,
					util.FormatGrant(entry.CanRead, entry.CanWrite),
				)
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Repeat("-", 80))

			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output format (json)")
	cmd.Flags().StringVar(&viewAs, "as", "", "View as another user by id (admins only)")
	return cmd
}
