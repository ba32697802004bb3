package cmd

import (
	"github.com/spf13/cobra"
)

// defaultCmd represents the command that runs when no subcommand is specified
var defaultCmd = &cobra.Command{
	Use:    "default",
	Short:  "Default command when no subcommand is provided",
	Long:   `Runs the serve command.`,
	Hidden: true,
	Run: func(cmd *cobra.Command, args []string) {
		serveCmd.Run(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(defaultCmd)
	rootCmd.Args = cobra.NoArgs
	rootCmd.Run = func(cmd *cobra.Command, args []string) {
		defaultCmd.Run(cmd, args)
	}
}
