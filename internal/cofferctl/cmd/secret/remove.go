package secret

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coffersec/coffer/internal/cofferctl/util"
)

func newRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm NAME",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete a secret",
		Long: `Delete a secret along with its history and grants. Requires write
access to the secret.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := util.GetClientFromCommand(cmd)
			if err != nil {
				return err
			}

			if err := c.DeleteSecret(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("error deleting secret: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Secret %q deleted\n", args[0])
			return nil
		},
	}
}
