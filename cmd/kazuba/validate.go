package main

import (
	"context"
	"fmt"
	"os"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/gabrielgadea/kazuba-saas-api/config"
	"github.com/gabrielgadea/kazuba-saas-api/domain/tier"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration before deployment",
	Long: `Validate the Kazuba configuration file.

Checks:
  - YAML syntax is valid
  - Tier limits are positive and monotonic across tiers
  - Redis is reachable (optional)

Examples:
  kazuba validate
  kazuba validate --config /etc/kazuba/config.yaml --check-redis`,
	RunE: runValidate,
}

var validateCheckRedis bool

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateCheckRedis, "check-redis", false, "check if the Redis counter store is reachable")
}

func runValidate(cmd *cobra.Command, args []string) error {
	fmt.Printf("Validating %s...\n\n", cfgFile)

	// Check file exists
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		fmt.Printf("  %s Config file exists\n", crossMark)
		return fmt.Errorf("config file not found: %s", cfgFile)
	}
	fmt.Printf("  %s Config file exists\n", checkMark)

	// Load and validate config
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Printf("  %s Config syntax valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Printf("  %s Config syntax valid\n", checkMark)

	// Show config summary
	fmt.Printf("  %s Listen: %s:%d\n", checkMark, cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("  %s Redis: %s\n", checkMark, cfg.Redis.URL)
	fmt.Printf("  %s Fallback: %s\n", checkMark, cfg.Quota.Fallback)

	policy, err := cfg.Policy()
	if err != nil {
		fmt.Printf("  %s Tier policy valid\n", crossMark)
		return fmt.Errorf("tier policy: %w", err)
	}
	for _, t := range tier.All() {
		limits, _ := policy.LimitFor(t)
		fmt.Printf("  %s Tier %s: %d req/day, %d docs/month\n",
			checkMark, t, limits.RequestsPerDay, limits.DocsPerMonth)
	}

	// Optional: check Redis
	if validateCheckRedis {
		if err := checkRedisReachable(cfg.Redis.URL); err != nil {
			fmt.Printf("  %s Redis reachable\n", crossMark)
			fmt.Printf("      Error: %v\n", err)
		} else {
			fmt.Printf("  %s Redis reachable\n", checkMark)
		}
	}

	fmt.Println()
	fmt.Println("Configuration is valid.")
	return nil
}

func checkRedisReachable(url string) error {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return err
	}

	client := goredis.NewClient(opts)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return client.Ping(ctx).Err()
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)
