// Package commands implements the fractal-server CLI.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version information injected at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "fractal-server",
	Short: "Fractal - scientific computation coordination server",
	Long: `Fractal coordinates distributed scientific computations: it stores
molecules and task records in a managed relational datastore, exposes an
HTTP API, and optionally runs a bounded local compute pool.

Use "fractal-server [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fractal-server %s (commit: %s, built: %s)\n", Version, Commit, Date)
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
