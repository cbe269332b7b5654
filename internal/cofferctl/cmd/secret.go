package cmd

import (
	"github.com/spf13/cobra"

	"github.com/coffersec/coffer/internal/cofferctl/cmd/secret"
)

func newSecretCmd() *cobra.Command {
	return secret.NewCommand()
}
