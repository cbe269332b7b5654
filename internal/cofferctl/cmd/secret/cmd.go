// Package secret implements the secret management subcommands
package secret

import (
	"github.com/spf13/cobra"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage secrets",
		Long: `Secret commands let you read, write, share and watch the secrets
your account can access. Admins can additionally check what another
user sees with the --as flag on read commands.`,
	}

	cmd.AddCommand(
		newGetCommand(),
		newSetCommand(),
		newRemoveCommand(),
		newListCommand(),
		newHistoryCommand(),
		newACLCommand(),
		newShareCommand(),
		newUnshareCommand(),
		newWatchCommand(),
	)

	return cmd
}
