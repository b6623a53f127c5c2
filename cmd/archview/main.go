// archview is the CLI for the architecture dashboard backend: it fetches
// dependency graphs, runs analyses, manages rules, and hosts the
// interactive graph viewer.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zenpipeline/archview/internal/config"
	"github.com/zenpipeline/archview/pkg/client"
)

var (
	Version = "v1.0.0"
	Commit  = "unknown"
)

var (
	endpointFlag string
	tokenFlag    string
	jsonOutput   bool

	cfg       config.Config
	apiClient *client.Client
)

var rootCmd = &cobra.Command{
	Use:     "archview <command>",
	Short:   "Dependency graph tooling for the pipeline architecture backend",
	Version: fmt.Sprintf("%s (%s)", Version, Commit),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if endpointFlag != "" {
			cfg.Endpoint = endpointFlag
		}
		if tokenFlag != "" {
			cfg.Token = tokenFlag
		}
		apiClient = client.New(cfg.Endpoint, client.StaticToken(cfg.Token))
		return nil
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&endpointFlag, "endpoint", "", "backend API base URL (default ARCHVIEW_ENDPOINT)")
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", "", "bearer token (default ARCHVIEW_TOKEN)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit JSON instead of text")

	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
