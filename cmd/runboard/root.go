// ABOUTME: Root cobra command: shared flags, configuration resolution, and the API client
// ABOUTME: constructor the subcommands build on.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runboard/runboard/api"
	"github.com/runboard/runboard/config"
)

var version = "dev"

var (
	serverFlag string
	tokenFlag  string
	dbFlag     string
	tailFlag   int
)

var rootCmd = &cobra.Command{
	Use:   "runboard",
	Short: "Terminal dashboard for pipeline runs",
	Long: `runboard follows pipeline runs on an orchestrator: live logs, live resource
metrics, and stored history once a run finishes.

Quick start:
  runboard demo                          # Start a local demo orchestrator
  runboard watch <run-id>                # Full-screen dashboard for a run
  runboard logs <run-id> --follow        # Stream logs to stdout
  runboard metrics <run-id>              # Print stored metric samples`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "", "Orchestrator base URL (overrides RUNBOARD_SERVER)")
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", "", "Bearer token (overrides RUNBOARD_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "", "Recording database path (overrides RUNBOARD_DB)")
	rootCmd.PersistentFlags().IntVar(&tailFlag, "tail", 0, "Historical log tail size (overrides RUNBOARD_TAIL)")

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves the effective configuration, with command-line flags
// beating environment and file values.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if serverFlag != "" {
		cfg.ServerURL = serverFlag
	}
	if tokenFlag != "" {
		cfg.Token = tokenFlag
	}
	if dbFlag != "" {
		cfg.DBPath = dbFlag
	}
	if tailFlag > 0 {
		cfg.TailLines = tailFlag
	}
	return cfg, nil
}

// newClient builds the API client from resolved configuration. An explicit
// token becomes a static credential; otherwise the env/file credential chain
// applies at request time.
func newClient(cfg *config.Config) *api.Client {
	var creds api.CredentialSource
	if cfg.Token != "" {
		creds = api.StaticCredentials(cfg.Token)
	}
	return api.NewClient(cfg.ServerURL, creds)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the runboard version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("runboard %s\n", version)
	},
}
