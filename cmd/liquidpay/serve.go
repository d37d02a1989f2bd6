package main

import (
	"context"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/liquidpay/liquidpay/pkg/config"
	"github.com/liquidpay/liquidpay/pkg/evm"
	"github.com/liquidpay/liquidpay/pkg/keycrypto"
	"github.com/liquidpay/liquidpay/pkg/logger"
	"github.com/liquidpay/liquidpay/pkg/metrics"
	"github.com/liquidpay/liquidpay/pkg/oracle"
	"github.com/liquidpay/liquidpay/pkg/relayer"
	"github.com/liquidpay/liquidpay/pkg/server"
	"github.com/liquidpay/liquidpay/pkg/sol"
	"github.com/liquidpay/liquidpay/pkg/store"
	"github.com/liquidpay/liquidpay/pkg/transfer"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	enc, err := keycrypto.New(cfg.Security.Seed)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Database.Path, enc)
	if err != nil {
		return err
	}

	registry, err := relayer.NewRegistry(cfg)
	if err != nil {
		return err
	}

	// A network stays disabled when its client cannot connect; the
	// service still runs for the other one.
	var evmClient *evm.Client
	if cfg.EVM.RPC != "" {
		evmClient, err = evm.Dial(&cfg.EVM)
		if err != nil {
			logger.ErrorCF("main", "EVM chain unavailable, network disabled", map[string]any{
				"error": err.Error(),
			})
			evmClient = nil
		}
	}

	var solClient *sol.Client
	if cfg.Solana.RPC != "" {
		solClient, err = sol.New(cfg.Solana.RPC, cfg.Solana.TokenMint)
		if err != nil {
			logger.ErrorCF("main", "Solana chain unavailable, network disabled", map[string]any{
				"error": err.Error(),
			})
			solClient = nil
		}
	}

	var strategies []transfer.Strategy
	if identity, ok := registry.EVM(); ok && evmClient != nil {
		strategies = append(strategies,
			transfer.NewEVMStrategy(evmClient, identity, &cfg.EVM, cfg.PollInterval()))
	}
	if identity, ok := registry.Solana(); ok && solClient != nil {
		strategies = append(strategies,
			transfer.NewSolanaStrategy(solClient, identity, &cfg.Solana, cfg.PollInterval()))
	}

	chainOracle := oracle.New(evmClient, solClient)
	orch := transfer.New(chainOracle, st, st, cfg.ConfirmTimeout(), strategies...)
	svc := transfer.NewService(orch, st)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go watchRelayerBalances(ctx, cfg, registry, evmClient, solClient)

	srv := server.New(&cfg.Server, svc, st, chainOracle)
	return srv.Run(ctx)
}

// watchRelayerBalances refreshes the relayer balance gauges once a
// minute so an underfunded relayer is visible before transfers start
// failing.
func watchRelayerBalances(ctx context.Context, cfg *config.Config, registry *relayer.Registry, evmClient *evm.Client, solClient *sol.Client) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	update := func() {
		if identity, ok := registry.EVM(); ok && evmClient != nil {
			if balance, err := evmClient.NativeBalance(ctx, identity.Address); err == nil {
				wei, _ := new(big.Float).SetInt(balance).Float64()
				metrics.RelayerBalance.WithLabelValues("evm").Set(wei)
			}
		}
		if identity, ok := registry.Solana(); ok && solClient != nil {
			if lamports, err := solClient.NativeBalance(ctx, identity.PublicKey()); err == nil {
				metrics.RelayerBalance.WithLabelValues("solana").Set(float64(lamports))
			}
		}
	}

	update()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			update()
		}
	}
}
