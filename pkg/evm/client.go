// Package evm wraps the go-ethereum client for the configured EVM
// chain and its USDC contract. Token calls use fixed selectors and raw
// calldata; the contract surface is small enough that no ABI machinery
// is needed.
package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/liquidpay/liquidpay/pkg/config"
	"github.com/liquidpay/liquidpay/pkg/logger"
)

// defaultGasLimit is used when estimation fails; generous for a USDC
// permit or transferFrom.
const defaultGasLimit = uint64(120000)

// Client talks to one EVM chain.
type Client struct {
	eth   *ethclient.Client
	chain *config.EVMChain
	token common.Address
}

// Dial connects to the chain's RPC and verifies the chain ID matches
// the configuration.
func Dial(chain *config.EVMChain) (*Client, error) {
	eth, err := ethclient.Dial(chain.RPC)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s RPC: %w", chain.Name, err)
	}

	chainID, err := eth.ChainID(context.Background())
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("failed to get chain ID for %s: %w", chain.Name, err)
	}
	if chainID.Int64() != chain.ChainID {
		eth.Close()
		return nil, fmt.Errorf("chain ID mismatch: expected %d, got %d", chain.ChainID, chainID.Int64())
	}

	logger.InfoCF("evm", "Connected to chain", map[string]any{
		"name":    chain.Name,
		"chainId": chain.ChainID,
		"rpc":     chain.RPC,
		"token":   chain.TokenAddress,
	})

	return &Client{
		eth:   eth,
		chain: chain,
		token: common.HexToAddress(chain.TokenAddress),
	}, nil
}

// Close closes the RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// TokenAddress returns the USDC contract address.
func (c *Client) TokenAddress() common.Address {
	return c.token
}

// NativeBalance returns the native-currency balance of an address.
func (c *Client) NativeBalance(ctx context.Context, address common.Address) (*big.Int, error) {
	balance, err := c.eth.BalanceAt(ctx, address, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// TokenBalance returns the USDC balance of an address in base units.
func (c *Client) TokenBalance(ctx context.Context, address common.Address) (*big.Int, error) {
	result, err := c.tokenCall(ctx, BalanceOfCallData(address))
	if err != nil {
		return nil, fmt.Errorf("eth_call balanceOf failed: %w", err)
	}
	if len(result) == 0 {
		return big.NewInt(0), nil
	}
	return new(big.Int).SetBytes(result), nil
}

// PermitNonce reads the EIP-2612 permit nonce for an owner from the
// token contract.
func (c *Client) PermitNonce(ctx context.Context, owner common.Address) (*big.Int, error) {
	result, err := c.tokenCall(ctx, NoncesCallData(owner))
	if err != nil {
		return nil, fmt.Errorf("eth_call nonces failed: %w", err)
	}
	return new(big.Int).SetBytes(result), nil
}

// tokenCall performs a raw eth_call against the token contract.
func (c *Client) tokenCall(ctx context.Context, callData []byte) ([]byte, error) {
	var resultHex string
	err := c.eth.Client().CallContext(ctx, &resultHex, "eth_call", map[string]interface{}{
		"to":   c.token.Hex(),
		"data": "0x" + common.Bytes2Hex(callData),
	}, "latest")
	if err != nil {
		return nil, err
	}
	return common.FromHex(resultHex), nil
}

// SubmitTokenCall signs and broadcasts a zero-value transaction to the
// token contract, paid by the given key. Returns the transaction hash.
func (c *Client) SubmitTokenCall(ctx context.Context, key *ecdsa.PrivateKey, callData []byte) (common.Hash, error) {
	from := crypto.PubkeyToAddress(key.PublicKey)

	nonce, err := c.eth.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get gas price: %w", err)
	}

	gasLimit := defaultGasLimit
	estimated, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From: from,
		To:   &c.token,
		Data: callData,
	})
	if err != nil {
		logger.WarnCF("evm", "Gas estimation failed, using default", map[string]any{
			"error": err.Error(),
		})
	} else {
		gasLimit = estimated + 10000 // buffer
	}

	tx := types.NewTransaction(nonce, c.token, big.NewInt(0), gasLimit, gasPrice, callData)

	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(big.NewInt(c.chain.ChainID)), key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.eth.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	return signedTx.Hash(), nil
}

// EstimateFee estimates the native-currency cost of a token call from
// the given sender. Used for operational logging only.
func (c *Client) EstimateFee(ctx context.Context, from common.Address, callData []byte) (*big.Int, error) {
	gasLimit, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From: from,
		To:   &c.token,
		Data: callData,
	})
	if err != nil {
		return nil, err
	}
	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Mul(new(big.Int).SetUint64(gasLimit), gasPrice), nil
}

// WaitReceipt polls for a transaction receipt until the context
// expires. A receipt with a failed status is returned as-is; the
// caller decides what a revert means.
func (c *Client) WaitReceipt(ctx context.Context, txHash common.Hash, poll time.Duration) (*types.Receipt, error) {
	for {
		receipt, err := c.eth.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		if err != ethereum.NotFound {
			return nil, fmt.Errorf("failed to get receipt: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(poll):
		}
	}
}
