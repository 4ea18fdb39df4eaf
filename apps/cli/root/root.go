package root

import (
	"github.com/spf13/cobra"

	"github.com/zenGate-Global/rentboard/platform/go/setups"
)

// rootCmd is the base command for the Rentboard admin CLI. Subcommands are attached in wire.go.
var rootCmd = &cobra.Command{
	Use:           "rentboard",
	Short:         "Rentboard admin CLI",
	Long:          "Administrative utilities for Rentboard (schema bootstrap, marketplace credentials, feeds, webhook failures, dev tokens).",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setups.LoadDotEnv()
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// Root returns the mutable root command for wiring from subpackages.
func Root() *cobra.Command {
	return rootCmd
}
