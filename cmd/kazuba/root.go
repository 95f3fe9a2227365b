package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "kazuba",
	Short: "Metered document conversion API gateway",
	Long: `Kazuba is a metered API gateway for document conversion.

It authenticates tier-tagged API keys, enforces per-tier daily request
and monthly document quotas against a shared Redis counter store, and
extracts text from pdf, docx, txt and md uploads.

Quick start:
  kazuba serve      # Start the gateway
  kazuba keys new   # Mint an API key

Management:
  kazuba validate   # Validate configuration
  kazuba version    # Print version information`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "kazuba.yaml", "config file path")
}
