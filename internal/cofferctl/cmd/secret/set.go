package secret

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coffersec/coffer/internal/cofferctl/util"
)

func newSetCommand() *cobra.Command {
	var fromStdin bool

	cmd := &cobra.Command{
		Use:   "set NAME [VALUE]",
		Short: "Create or update a secret",
		Long: `Create or update a secret. Creating a secret makes you its owner
with read and write access; updating requires write access.

The value can be passed as an argument or piped on stdin with
--from-stdin, which keeps it out of shell history.`,
		Example: `  # Set a secret value
  cofferctl secret set db-password hunter2

  # Read the value from stdin
  cat password.txt | cofferctl secret set db-password --from-stdin`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			var value string
			switch {
			case fromStdin:
				if len(args) > 1 {
					return fmt.Errorf("cannot combine a VALUE argument with --from-stdin")
				}
				data, err := io.ReadAll(bufio.NewReader(os.Stdin))
				if err != nil {
					return fmt.Errorf("error reading value from stdin: %w", err)
				}
				value = strings.TrimSuffix(string(data), "\n")
			case len(args) == 2:
				value = args[1]
			default:
				return fmt.Errorf("provide a VALUE argument or use --from-stdin")
			}

			c, err := util.GetClientFromCommand(cmd)
			if err != nil {
				return err
			}

			if _, err := c.SetSecret(cmd.Context(), name, value); err != nil {
				return fmt.Errorf("error setting secret: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Secret %q set\n", name)
			return nil
		},
	}

	cmd.Flags().BoolVar(&fromStdin, "from-stdin", false, "Read the value from stdin")
	return cmd
}
