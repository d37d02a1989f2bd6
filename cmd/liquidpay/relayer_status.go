package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/liquidpay/liquidpay/pkg/evm"
	"github.com/liquidpay/liquidpay/pkg/relayer"
	"github.com/liquidpay/liquidpay/pkg/sol"
)

func newRelayerStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "relayer-status",
		Short: "Print relayer addresses and native balances",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			registry, err := relayer.NewRegistry(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if identity, ok := registry.EVM(); ok {
				fmt.Printf("EVM (%s) relayer: %s\n", cfg.EVM.Name, identity.Address.Hex())
				client, err := evm.Dial(&cfg.EVM)
				if err != nil {
					fmt.Printf("  balance: unavailable (%v)\n", err)
				} else {
					defer client.Close()
					if balance, err := client.NativeBalance(ctx, identity.Address); err != nil {
						fmt.Printf("  balance: unavailable (%v)\n", err)
					} else {
						fmt.Printf("  balance: %s wei (floor %s)\n", balance, cfg.EVM.MinRelayerBalance())
					}
				}
			} else {
				fmt.Println("EVM relayer: not configured")
			}

			if identity, ok := registry.Solana(); ok {
				fmt.Printf("Solana relayer: %s\n", identity.PublicKey())
				client, err := sol.New(cfg.Solana.RPC, cfg.Solana.TokenMint)
				if err != nil {
					fmt.Printf("  balance: unavailable (%v)\n", err)
				} else if lamports, err := client.NativeBalance(ctx, identity.PublicKey()); err != nil {
					fmt.Printf("  balance: unavailable (%v)\n", err)
				} else {
					fmt.Printf("  balance: %d lamports (floor %d)\n", lamports, cfg.Solana.MinRelayerBalanceLamports)
				}
			} else {
				fmt.Println("Solana relayer: not configured")
			}

			return nil
		},
	}
}
