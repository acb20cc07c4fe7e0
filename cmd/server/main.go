/*
Command carwizard serves vehicle recommendations and wizard session tracking.

Usage:

	carwizard [command]

Available Commands:

	serve           Run the REST API and MCP server (default)
	catalog import  Load vehicles from a YAML catalog file
	keys add        Register an API key for an identity

Configuration is read from carwizard.yaml or the file named by
CARWIZARD_CONFIG_PATH, then overridden by CARWIZARD_* environment variables.
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serveCmd := newServeCmd()

	rootCmd := &cobra.Command{
		Use:   "carwizard",
		Short: "Vehicle recommendation engine with wizard session tracking",
		Long: `carwizard filters a vehicle catalog by budget, body type and fuel type,
ranks the remaining vehicles by usage and priority tag matches, and records
every step of a wizard session as an append-only history.

Running without a command starts the server.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serveCmd.RunE,
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newCatalogCmd())
	rootCmd.AddCommand(newKeysCmd())
	return rootCmd
}
