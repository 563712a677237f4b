// ABOUTME: CLI entrypoint for the runboard dashboard.
// ABOUTME: Loads .env defaults, then hands off to the cobra command tree.
package main

import (
	"os"

	"github.com/runboard/runboard/config"
)

func main() {
	_ = config.LoadDotEnv(".env")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
