package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gabrielgadea/kazuba-saas-api/bootstrap"
	"github.com/gabrielgadea/kazuba-saas-api/config"
)

var (
	hotReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the conversion gateway",
	Long: `Start the Kazuba gateway server.

The server will:
  - Load configuration from kazuba.yaml (or --config)
  - Or load configuration from KAZUBA_* environment variables
  - Connect to the Redis counter store
  - Serve /convert and /usage with per-tier quota enforcement

Environment variables (for Docker deployments):
  KAZUBA_REDIS_URL       - Redis URL (default: redis://localhost:6379/0)
  KAZUBA_SERVER_PORT     - Server port (default: 8080)
  KAZUBA_QUOTA_FALLBACK  - Store-failure policy: open or closed
  KAZUBA_LOG_LEVEL       - Log level: debug, info, warn, error

Examples:
  kazuba serve
  kazuba serve --config /etc/kazuba/config.yaml
  kazuba serve --hot-reload=false

  # Docker (env vars only):
  KAZUBA_REDIS_URL=redis://cache:6379/0 kazuba serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "enable hot reload of configuration")
}

func runServe(cmd *cobra.Command, args []string) error {
	hasConfigFile := false
	if _, err := os.Stat(cfgFile); err == nil {
		hasConfigFile = true
	}

	var app *bootstrap.App
	var err error

	if hasConfigFile && hotReload {
		// Hot reload only works with a config file
		app, err = bootstrap.NewWithHotReload(cfgFile)
	} else {
		cfg, loadErr := config.LoadWithFallback(cfgFile)
		if loadErr != nil {
			return fmt.Errorf("error loading config: %w", loadErr)
		}

		if !hasConfigFile {
			fmt.Println("Running with environment variables (no config file)")
		}

		app, err = bootstrap.New(cfg)
	}

	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run()
}
