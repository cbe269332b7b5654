// Package cmd implements the Coffer CLI commands
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cofferctl",
	Short: "Coffer secrets control tool",
	Long: `cofferctl is a command line tool for managing secrets stored in a
Coffer server. It handles login through your identity provider, and
lets you read, write, share and watch the secrets your account can
access.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config file (default is $HOME/.cofferctl/config.yaml)")
	rootCmd.PersistentFlags().String("server", "", "API server address")

	// Add commands
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newSecretCmd())
	rootCmd.AddCommand(newVersionCmd())
}
