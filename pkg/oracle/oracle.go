// Package oracle answers on-chain USDC balance queries for both
// supported networks behind one interface.
package oracle

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"

	"github.com/liquidpay/liquidpay/pkg/evm"
	"github.com/liquidpay/liquidpay/pkg/sol"
	"github.com/liquidpay/liquidpay/pkg/transfer"
)

// ChainOracle queries token balances through the configured chain
// clients. Either client may be nil when its network is disabled.
type ChainOracle struct {
	evm *evm.Client
	sol *sol.Client
}

// New builds the oracle over the available chain clients.
func New(evmClient *evm.Client, solClient *sol.Client) *ChainOracle {
	return &ChainOracle{evm: evmClient, sol: solClient}
}

// TokenBalance returns the address's USDC balance in base units. A
// missing token account is zero balance; RPC failures propagate and
// are retryable by the caller.
func (o *ChainOracle) TokenBalance(ctx context.Context, network transfer.Network, address string) (*big.Int, error) {
	switch network {
	case transfer.NetworkEVM:
		if o.evm == nil {
			return nil, fmt.Errorf("evm client not configured")
		}
		if !common.IsHexAddress(address) {
			return nil, fmt.Errorf("invalid evm address %q", address)
		}
		return o.evm.TokenBalance(ctx, common.HexToAddress(address))
	case transfer.NetworkSolana:
		if o.sol == nil {
			return nil, fmt.Errorf("solana client not configured")
		}
		owner, err := solana.PublicKeyFromBase58(address)
		if err != nil {
			return nil, fmt.Errorf("invalid solana address %q: %w", address, err)
		}
		return o.sol.TokenBalance(ctx, owner)
	default:
		return nil, fmt.Errorf("unsupported network %q", network)
	}
}
