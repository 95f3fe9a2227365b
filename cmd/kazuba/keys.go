package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gabrielgadea/kazuba-saas-api/domain/key"
	"github.com/gabrielgadea/kazuba-saas-api/domain/tier"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage API keys",
	Long: `Mint Kazuba API keys.

Keys are self-describing: the tier marker is embedded in the token, so
there is nothing to store server-side. A lost key cannot be recovered,
only reissued.

Examples:
  kazuba keys new
  kazuba keys new --tier=pro
  kazuba keys new --tier=hobby --count=5`,
}

var keysNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Mint new API keys",
	RunE:  runKeysNew,
}

var (
	keyTier  string
	keyCount int
)

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysNewCmd)

	keysNewCmd.Flags().StringVar(&keyTier, "tier", "free", "tier for the new key (free, hobby, pro)")
	keysNewCmd.Flags().IntVar(&keyCount, "count", 1, "number of keys to mint")
}

func runKeysNew(cmd *cobra.Command, args []string) error {
	t, ok := tier.Parse(keyTier)
	if !ok {
		return fmt.Errorf("unknown tier %q (expected one of: free, hobby, pro)", keyTier)
	}

	if keyCount < 1 {
		keyCount = 1
	}

	for i := 0; i < keyCount; i++ {
		token, err := key.Generate(t)
		if err != nil {
			return fmt.Errorf("mint key: %w", err)
		}
		fmt.Println(token)
	}

	return nil
}
