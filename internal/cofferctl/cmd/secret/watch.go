package secret

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coffersec/coffer/internal/cofferctl/util"
)

func newWatchCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream change notifications for readable secrets",
		Long: `Stream change notifications for the secrets you can read. The
command prints one line per change until interrupted.`,
		Example: `  # Watch for changes
  cofferctl secret watch

  # Emit raw events as JSON
  cofferctl secret watch -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := util.GetClientFromCommand(cmd)
			if err != nil {
				return err
			}

			events, err := c.WatchEvents(cmd.Context())
			if err != nil {
				return err
			}

			for event := range events {
				if output == "json" {
					if err := util.PrintJSON(cmd.OutOrStdout(), event); err != nil {
						return err
					}
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-15s %s\n",
					event.Timestamp.Format("15:04:05"),
					event.Type,
					event.Name,
				)
			}

			if cmd.Context().Err() != nil {
				return nil
			}
			return fmt.Errorf("event stream closed by server")
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output format (json)")
	return cmd
}
