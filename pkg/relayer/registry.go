// Package relayer holds the platform's fee-paying identities, one per
// network. Keys come from configuration at process start; nothing here
// is tied to an end user.
package relayer

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gagliardetto/solana-go"

	"github.com/liquidpay/liquidpay/pkg/config"
	"github.com/liquidpay/liquidpay/pkg/logger"
)

// EVMIdentity is the relayer signing key for the EVM chain.
type EVMIdentity struct {
	Key     *ecdsa.PrivateKey
	Address common.Address
}

// SolanaIdentity is the relayer signing key for Solana.
type SolanaIdentity struct {
	Key solana.PrivateKey
}

// PublicKey returns the relayer's Solana address.
func (s *SolanaIdentity) PublicKey() solana.PublicKey {
	return s.Key.PublicKey()
}

// Registry exposes the configured relayer identities. A network whose
// key is absent from configuration simply has no identity; transfers
// on it fail as a configuration error.
type Registry struct {
	evm    *EVMIdentity
	solana *SolanaIdentity
}

// NewRegistry parses the relayer keys out of configuration. It is
// called once at startup; call sites receive the registry explicitly
// rather than reading ambient state.
func NewRegistry(cfg *config.Config) (*Registry, error) {
	r := &Registry{}

	if cfg.EVM.RelayerKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.EVM.RelayerKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid evm relayer key: %w", err)
		}
		r.evm = &EVMIdentity{
			Key:     key,
			Address: crypto.PubkeyToAddress(key.PublicKey),
		}
		logger.InfoCF("relayer", "EVM relayer configured", map[string]any{
			"address": r.evm.Address.Hex(),
			"chain":   cfg.EVM.Name,
		})
	}

	if cfg.Solana.RelayerKey != "" {
		key, err := solana.PrivateKeyFromBase58(cfg.Solana.RelayerKey)
		if err != nil {
			return nil, fmt.Errorf("invalid solana relayer key: %w", err)
		}
		r.solana = &SolanaIdentity{Key: key}
		logger.InfoCF("relayer", "Solana relayer configured", map[string]any{
			"address": r.solana.PublicKey().String(),
		})
	}

	if r.evm == nil && r.solana == nil {
		logger.WarnC("relayer", "No relayer identities configured; all transfers will be refused")
	}

	return r, nil
}

// EVM returns the EVM relayer identity if configured.
func (r *Registry) EVM() (*EVMIdentity, bool) {
	return r.evm, r.evm != nil
}

// Solana returns the Solana relayer identity if configured.
func (r *Registry) Solana() (*SolanaIdentity, bool) {
	return r.solana, r.solana != nil
}
