// liquidpay is the gasless USDC transfer service: custodial wallets
// plus relayer-sponsored transfers on Base and Solana.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/liquidpay/liquidpay/pkg/config"
	"github.com/liquidpay/liquidpay/pkg/logger"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "liquidpay",
		Short:         "Gasless USDC transfer service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "liquidpay.json", "path to config file")

	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateWalletsCmd())
	root.AddCommand(newRelayerStatusCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig reads and validates the configuration, then applies its
// logging settings.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.SetLevel(cfg.Logging.Level)
	logger.SetJSON(cfg.Logging.JSON)
	return cfg, nil
}
