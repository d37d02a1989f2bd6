// Package sol wraps the Solana RPC client for USDC balance queries and
// sponsored (relayer fee-paid) SPL token transfers.
package sol

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/liquidpay/liquidpay/pkg/logger"
)

// Client talks to one Solana RPC endpoint for one token mint.
type Client struct {
	rpc  *rpc.Client
	mint solana.PublicKey
}

// New creates a client for the given endpoint and token mint.
func New(endpoint, mint string) (*Client, error) {
	mintKey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return nil, fmt.Errorf("invalid token mint %q: %w", mint, err)
	}

	logger.InfoCF("sol", "Solana client configured", map[string]any{
		"rpc":  endpoint,
		"mint": mint,
	})

	return &Client{
		rpc:  rpc.New(endpoint),
		mint: mintKey,
	}, nil
}

// Mint returns the configured token mint.
func (c *Client) Mint() solana.PublicKey {
	return c.mint
}

// NativeBalance returns the SOL balance of an account in lamports.
func (c *Client) NativeBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	out, err := c.rpc.GetBalance(ctx, account, rpc.CommitmentFinalized)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return out.Value, nil
}

// AccountExists reports whether an account exists on-chain. A missing
// account is not an error.
func (c *Client) AccountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	_, err := c.rpc.GetAccountInfo(ctx, account)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get account info: %w", err)
	}
	return true, nil
}

// TokenBalance returns the owner's USDC balance in base units. An
// owner whose associated token account does not exist holds zero; only
// genuine RPC failures are errors.
func (c *Client) TokenBalance(ctx context.Context, owner solana.PublicKey) (*big.Int, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, c.mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive token account: %w", err)
	}

	exists, err := c.AccountExists(ctx, ata)
	if err != nil {
		return nil, err
	}
	if !exists {
		return big.NewInt(0), nil
	}

	out, err := c.rpc.GetTokenAccountBalance(ctx, ata, rpc.CommitmentFinalized)
	if err != nil {
		return nil, fmt.Errorf("failed to get token balance: %w", err)
	}

	amount, ok := new(big.Int).SetString(out.Value.Amount, 10)
	if !ok {
		return nil, fmt.Errorf("malformed token amount %q", out.Value.Amount)
	}
	return amount, nil
}

// LatestBlockhash fetches a recent blockhash for transaction assembly.
func (c *Client) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	out, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("failed to get blockhash: %w", err)
	}
	return out.Value.Blockhash, nil
}

// SendTransaction broadcasts a fully signed transaction once.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}
	return sig, nil
}

// ProgramError is a transaction that landed on-chain but failed inside
// a program. Retrying it blindly is unsafe; chain state has changed.
type ProgramError struct {
	Detail string
}

func (e *ProgramError) Error() string {
	return "program error: " + e.Detail
}

// ConfirmSignature polls the signature status until the transaction is
// confirmed, fails on-chain, or the context expires.
func (c *Client) ConfirmSignature(ctx context.Context, sig solana.Signature, poll time.Duration) error {
	for {
		out, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
		if err == nil && len(out.Value) > 0 && out.Value[0] != nil {
			status := out.Value[0]
			if status.Err != nil {
				return &ProgramError{Detail: fmt.Sprintf("%v", status.Err)}
			}
			switch status.ConfirmationStatus {
			case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
				return nil
			}
		}
		if err != nil {
			logger.WarnCF("sol", "Signature status poll failed", map[string]any{
				"signature": sig.String(),
				"error":     err.Error(),
			})
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(poll):
		}
	}
}
