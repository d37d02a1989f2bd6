package transfer

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/liquidpay/liquidpay/pkg/config"
	"github.com/liquidpay/liquidpay/pkg/logger"
	"github.com/liquidpay/liquidpay/pkg/relayer"
	"github.com/liquidpay/liquidpay/pkg/sol"
	"github.com/liquidpay/liquidpay/pkg/store"
)

// lamportsPerSignature is the flat network fee per signature, used for
// fee-estimation logging only.
const lamportsPerSignature = 5000

// SolanaStrategy moves USDC on Solana with a single dual-signed
// transaction: the user authorizes the token movement, the relayer
// co-signs as fee payer.
type SolanaStrategy struct {
	client   *sol.Client
	identity *relayer.SolanaIdentity
	chain    *config.SolanaChain
	poll     time.Duration
}

// NewSolanaStrategy wires the strategy to its RPC client and relayer.
func NewSolanaStrategy(client *sol.Client, identity *relayer.SolanaIdentity, chain *config.SolanaChain, poll time.Duration) *SolanaStrategy {
	return &SolanaStrategy{
		client:   client,
		identity: identity,
		chain:    chain,
		poll:     poll,
	}
}

func (s *SolanaStrategy) Network() Network {
	return NetworkSolana
}

func (s *SolanaStrategy) FeePayer() string {
	return s.identity.PublicKey().String()
}

func (s *SolanaStrategy) ExplorerURL(txHash string) string {
	return s.chain.ExplorerURL + txHash
}

func (s *SolanaStrategy) UserAddress(keys *store.UserKeys) string {
	return keys.SolanaAddress
}

// CheckRelayerBalance verifies the relayer can cover the transaction
// fee and, when needed, destination account rent.
func (s *SolanaStrategy) CheckRelayerBalance(ctx context.Context) error {
	lamports, err := s.client.NativeBalance(ctx, s.identity.PublicKey())
	if err != nil {
		return wrapError(CodeSubmissionFailed, "failed to read relayer balance", err)
	}
	if lamports < s.chain.MinRelayerBalanceLamports {
		observed := strconv.FormatUint(lamports, 10)
		floor := strconv.FormatUint(s.chain.MinRelayerBalanceLamports, 10)
		terr := newError(CodeInsufficientRelayerBalance,
			"relayer balance "+observed+" lamports below operating floor "+floor+" lamports")
		terr.ObservedBalance = observed
		return terr
	}
	return nil
}

// Submit assembles, dual-signs, and broadcasts the sponsored transfer
// exactly once. Pre-broadcast failures are retryable by the caller.
func (s *SolanaStrategy) Submit(ctx context.Context, keys *store.UserKeys, destination string, amount uint64) (string, error) {
	destOwner, err := solana.PublicKeyFromBase58(destination)
	if err != nil {
		return "", wrapError(CodeInvalidDestination, "destination is not a valid address: "+destination, err)
	}
	owner := keys.SolanaKey.PublicKey()
	mint := s.client.Mint()

	source, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return "", wrapError(CodeSubmissionFailed, "failed to derive source token account", err)
	}
	dest, _, err := solana.FindAssociatedTokenAddress(destOwner, mint)
	if err != nil {
		return "", wrapError(CodeSubmissionFailed, "failed to derive destination token account", err)
	}

	destExists, err := s.client.AccountExists(ctx, dest)
	if err != nil {
		return "", wrapError(CodeSubmissionFailed, "failed to check destination token account", err)
	}

	blockhash, err := s.client.LatestBlockhash(ctx)
	if err != nil {
		return "", wrapError(CodeSubmissionFailed, "failed to fetch blockhash", err)
	}

	tx, err := sol.BuildSponsoredTransfer(sol.SponsoredTransferParams{
		Blockhash:  blockhash,
		FeePayer:   s.identity.PublicKey(),
		Owner:      owner,
		DestOwner:  destOwner,
		Mint:       mint,
		Source:     source,
		Dest:       dest,
		Amount:     amount,
		Decimals:   TokenDecimals,
		CreateDest: !destExists,
	})
	if err != nil {
		return "", wrapError(CodeSubmissionFailed, "failed to build transaction", err)
	}

	if err := sol.SignSponsoredTransfer(tx, keys.SolanaKey, s.identity.Key); err != nil {
		return "", wrapError(CodeSubmissionFailed, "failed to sign transaction", err)
	}

	logger.InfoCF("transfer", "Solana fee estimate", map[string]any{
		"fee_lamports": len(tx.Signatures) * lamportsPerSignature,
		"create_dest":  !destExists,
	})

	sig, err := s.client.SendTransaction(ctx, tx)
	if err != nil {
		return "", wrapError(CodeSubmissionFailed, "failed to send transaction", err)
	}

	return sig.String(), nil
}

// Confirm polls the signature status. A program error is a definitive
// on-chain failure; everything else stays ambiguous.
func (s *SolanaStrategy) Confirm(ctx context.Context, txHash string) error {
	sig, err := solana.SignatureFromBase58(txHash)
	if err != nil {
		return newError(CodeExecutionFailed, "malformed transaction signature: "+txHash)
	}

	if err := s.client.ConfirmSignature(ctx, sig, s.poll); err != nil {
		var perr *sol.ProgramError
		if errors.As(err, &perr) {
			return wrapError(CodeExecutionFailed, perr.Detail, err)
		}
		return err
	}
	return nil
}
