package main

import (
	"os"

	"github.com/spf13/cobra"
)

// main builds the command tree: `serve` (the default, run when no
// subcommand is given) and `migrate`, the same two-command split
// orbas1-Synnergy's cobra binaries use for their own long-running-service
// vs. one-shot-operation commands.
func main() {
	var configFile string

	rootCmd := &cobra.Command{
		Use:   "engine",
		Short: "BREACH game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configFile)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", os.Getenv("BREACH_CONFIG_FILE"), "path to a YAML config file")

	rootCmd.AddCommand(serveCmd(&configFile))
	rootCmd.AddCommand(migrateCmd(&configFile))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
