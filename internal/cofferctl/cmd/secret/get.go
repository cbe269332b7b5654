package secret

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coffersec/coffer/internal/cofferctl/util"
)

func newGetCommand() *cobra.Command {
	var (
		output string
		viewAs string
	)

	cmd := &cobra.Command{
		Use:   "get NAME",
		Short: "Read a secret value",
		Example: `  # Print a secret value
  cofferctl secret get db-password

  # Show the full secret record as JSON
  cofferctl secret get db-password -o json

  # Check what another user sees (admins only)
  cofferctl secret get db-password --as 8a4f...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := util.GetClientFromCommand(cmd)
			if err != nil {
				return err
			}

			s, err := c.GetSecret(cmd.Context(), args[0], viewAs)
			if err != nil {
				return fmt.Errorf("error getting secret: %w", err)
			}

			if output == "json" {
				return util.PrintJSON(cmd.OutOrStdout(), s)
			}
			fmt.Fprintln(cmd.OutOrStdout(), s.Value)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output format (json)")
	cmd.Flags().StringVar(&viewAs, "as", "", "View as another user by id (admins only)")
	return cmd
}
