package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "catalog-discovery",
	Short: "Discovery and ranking engine for a project catalog",
	Long: `Filters, ranks and paginates the public project catalog.
Runs the HTTP API by default; search, browse and import work against the
same store from the command line.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".", "directory holding the .env file")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
