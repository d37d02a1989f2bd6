package config

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full service configuration. It is loaded from a JSON
// file and then overridden by LIQUIDPAY_* environment variables, so
// secrets like relayer keys never have to live on disk.
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Security SecurityConfig `json:"security"`
	EVM      EVMChain       `json:"evm"`
	Solana   SolanaChain    `json:"solana"`
	Transfer TransferConfig `json:"transfer"`
	Logging  LoggingConfig  `json:"logging"`
}

type ServerConfig struct {
	Host           string  `json:"host" env:"LIQUIDPAY_SERVER_HOST"`
	Port           int     `json:"port" env:"LIQUIDPAY_SERVER_PORT"`
	RateLimitRPS   float64 `json:"rate_limit_rps" env:"LIQUIDPAY_SERVER_RATE_LIMIT_RPS"`
	RateLimitBurst int     `json:"rate_limit_burst" env:"LIQUIDPAY_SERVER_RATE_LIMIT_BURST"`
}

type DatabaseConfig struct {
	Path string `json:"path" env:"LIQUIDPAY_DATABASE_PATH"`
}

type SecurityConfig struct {
	// Seed is the operator secret the wallet encryption key is derived
	// from. Changing it makes every stored private key unreadable.
	Seed string `json:"seed" env:"LIQUIDPAY_SECURITY_SEED"`
}

// EVMChain describes the EVM network (Base) and its USDC contract.
type EVMChain struct {
	Name         string `json:"name" env:"LIQUIDPAY_EVM_NAME"`
	RPC          string `json:"rpc" env:"LIQUIDPAY_EVM_RPC"`
	ChainID      int64  `json:"chain_id" env:"LIQUIDPAY_EVM_CHAIN_ID"`
	TokenAddress string `json:"token_address" env:"LIQUIDPAY_EVM_TOKEN_ADDRESS"`
	// TokenName and TokenVersion feed the EIP-712 permit domain.
	// USDC uses "USD Coin" / "2".
	TokenName    string `json:"token_name" env:"LIQUIDPAY_EVM_TOKEN_NAME"`
	TokenVersion string `json:"token_version" env:"LIQUIDPAY_EVM_TOKEN_VERSION"`
	RelayerKey   string `json:"relayer_key" env:"LIQUIDPAY_EVM_RELAYER_KEY"`
	// MinRelayerBalanceWei is the native balance floor below which new
	// sponsored transfers are refused.
	MinRelayerBalanceWei string `json:"min_relayer_balance_wei" env:"LIQUIDPAY_EVM_MIN_RELAYER_BALANCE_WEI"`
	ExplorerURL          string `json:"explorer_url" env:"LIQUIDPAY_EVM_EXPLORER_URL"`
}

// SolanaChain describes the Solana network and its USDC mint.
type SolanaChain struct {
	RPC                       string `json:"rpc" env:"LIQUIDPAY_SOLANA_RPC"`
	TokenMint                 string `json:"token_mint" env:"LIQUIDPAY_SOLANA_TOKEN_MINT"`
	RelayerKey                string `json:"relayer_key" env:"LIQUIDPAY_SOLANA_RELAYER_KEY"`
	MinRelayerBalanceLamports uint64 `json:"min_relayer_balance_lamports" env:"LIQUIDPAY_SOLANA_MIN_RELAYER_BALANCE_LAMPORTS"`
	ExplorerURL               string `json:"explorer_url" env:"LIQUIDPAY_SOLANA_EXPLORER_URL"`
}

type TransferConfig struct {
	// ConfirmTimeoutSec bounds confirmation waiting; on expiry the
	// transfer record is left pending for reconciliation.
	ConfirmTimeoutSec int `json:"confirm_timeout_sec" env:"LIQUIDPAY_TRANSFER_CONFIRM_TIMEOUT_SEC"`
	PollIntervalMs    int `json:"poll_interval_ms" env:"LIQUIDPAY_TRANSFER_POLL_INTERVAL_MS"`
}

type LoggingConfig struct {
	Level string `json:"level" env:"LIQUIDPAY_LOGGING_LEVEL"`
	JSON  bool   `json:"json" env:"LIQUIDPAY_LOGGING_JSON"`
}

// Load reads the config file at path (missing file is not an error,
// defaults plus environment are enough to run) and applies env
// overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no file is present.
// Chain endpoints default to public Base and Solana mainnet RPCs with
// the canonical USDC contracts.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			RateLimitRPS:   5,
			RateLimitBurst: 10,
		},
		Database: DatabaseConfig{
			Path: "liquidpay.db",
		},
		EVM: EVMChain{
			Name:                 "base",
			RPC:                  "https://mainnet.base.org",
			ChainID:              8453,
			TokenAddress:         "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
			TokenName:            "USD Coin",
			TokenVersion:         "2",
			MinRelayerBalanceWei: "1000000000000000", // 0.001 ETH
			ExplorerURL:          "https://basescan.org/tx/",
		},
		Solana: SolanaChain{
			RPC:                       "https://api.mainnet-beta.solana.com",
			TokenMint:                 "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
			MinRelayerBalanceLamports: 10_000_000, // 0.01 SOL
			ExplorerURL:               "https://solscan.io/tx/",
		},
		Transfer: TransferConfig{
			ConfirmTimeoutSec: 120,
			PollIntervalMs:    2000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks the invariants the rest of the service relies on.
func (c *Config) Validate() error {
	if c.Security.Seed == "" {
		return fmt.Errorf("security.seed is required")
	}
	if c.EVM.RelayerKey != "" {
		if c.EVM.RPC == "" || c.EVM.TokenAddress == "" || c.EVM.ChainID == 0 {
			return fmt.Errorf("evm relayer configured but rpc/token_address/chain_id missing")
		}
		if _, ok := new(big.Int).SetString(c.EVM.MinRelayerBalanceWei, 10); !ok {
			return fmt.Errorf("evm.min_relayer_balance_wei is not a decimal integer: %q", c.EVM.MinRelayerBalanceWei)
		}
	}
	if c.Solana.RelayerKey != "" && (c.Solana.RPC == "" || c.Solana.TokenMint == "") {
		return fmt.Errorf("solana relayer configured but rpc/token_mint missing")
	}
	if c.Transfer.ConfirmTimeoutSec <= 0 {
		return fmt.Errorf("transfer.confirm_timeout_sec must be positive")
	}
	return nil
}

// ConfirmTimeout returns the confirmation bound as a duration.
func (c *Config) ConfirmTimeout() time.Duration {
	return time.Duration(c.Transfer.ConfirmTimeoutSec) * time.Second
}

// PollInterval returns the receipt/signature polling cadence.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Transfer.PollIntervalMs) * time.Millisecond
}

// MinRelayerBalance parses the configured EVM relayer floor.
func (c *EVMChain) MinRelayerBalance() *big.Int {
	v, ok := new(big.Int).SetString(c.MinRelayerBalanceWei, 10)
	if !ok {
		return big.NewInt(0)
	}
	return v
}
