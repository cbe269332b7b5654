package secret

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coffersec/coffer/internal/cofferctl/util"
)

func newListCommand() *cobra.Command {
	var (
		output string
		viewAs string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List readable secrets",
		Example: `  # List all secrets you can read
  cofferctl secret list

  # Show secrets in JSON format
  cofferctl secret list -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := util.GetClientFromCommand(cmd)
			if err != nil {
				return err
			}

			secrets, err := c.ListSecrets(cmd.Context(), viewAs)
			if err != nil {
				return fmt.Errorf("error listing secrets: %w", err)
			}

			if output == "json" {
				return util.PrintJSON(cmd.OutOrStdout(), secrets)
			}

			// Table output
			fmt.Fprintln(cmd.OutOrStdout(), "\nSecrets:")
			fmt.Fprintln(cmd.OutOrStdout(), strings.Repeat("-", 80))
			fmt.Fprintf(cmd.OutOrStdout(), "%-30s %-20s %s\n", "NAME", "UPDATED", "ID")
			fmt.Fprintln(cmd.OutOrStdout(), strings.Repeat("-", 80))

			for _, s := range secrets {
				fmt.Fprintf(cmd.OutOrStdout(), "%-30s %-20s %s\n",
					s.Name,
					util.FormatAge(s.UpdatedAt),
					s.ID,
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
