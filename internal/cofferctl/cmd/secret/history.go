package secret

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coffersec/coffer/internal/cofferctl/util"
)

func newHistoryCommand() *cobra.Command {
	var (
		output string
		viewAs string
	)

	cmd := &cobra.Command{
		Use:   "history NAME",
		Short: "Show a secret's version history",
		Long:  `Show a secret's version history, newest first. Requires read access.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := util.GetClientFromCommand(cmd)
			if err != nil {
				return err
			}

			versions, err := c.GetHistory(cmd.Context(), args[0], viewAs)
			if err != nil {
				return fmt.Errorf("error getting history: %w", err)
			}

			if output == "json" {
				return util.PrintJSON(cmd.OutOrStdout(), versions)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\nHistory of %q:\n", args[0])
			fmt.Fprintln(cmd.OutOrStdout(), strings.Repeat("-", 80))
			fmt.Fprintf(cmd.OutOrStdout(), "%-8s %-20s %s\n", "VERSION", "CHANGED", "BY")
			fmt.Fprintln(cmd.OutOrStdout(), strings.Repeat("-", 80))

			for _, v := range versions {
				fmt.Fprintf(cmd.OutOrStdout(), "%-8d %-20s %s\n",
					v.Version,
					util.FormatAge(v.ChangedAt),
					v.ChangedBy,
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
