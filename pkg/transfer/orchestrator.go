// Package transfer implements the gasless transfer orchestrator: it
// validates preconditions, drives the network-specific sponsored
// transaction flow, and records outcomes in the transfer ledger.
package transfer

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/liquidpay/liquidpay/pkg/logger"
	"github.com/liquidpay/liquidpay/pkg/store"
)

// Oracle answers on-chain token balance queries. A missing account is
// zero balance; only RPC failures are errors.
type Oracle interface {
	TokenBalance(ctx context.Context, network Network, address string) (*big.Int, error)
}

// KeyStore is the scoped decrypted-key retrieval of the wallet store.
type KeyStore interface {
	GetDecryptedKeys(userID string) (*store.UserKeys, error)
}

// Ledger is the transfer record's lifecycle surface. Implementations
// must keep terminal states immutable.
type Ledger interface {
	AttachSubmission(id, txHash, feePayer string) error
	MarkConfirmed(id string) error
	MarkFailed(id, reason string) error
}

// Strategy is one network's sponsored-transfer flow. Submit performs
// exactly one broadcast attempt; Confirm waits for the submitted
// transaction and returns a CodeExecutionFailed *Error only for a
// definitive on-chain failure.
type Strategy interface {
	Network() Network
	FeePayer() string
	ExplorerURL(txHash string) string
	CheckRelayerBalance(ctx context.Context) error
	UserAddress(keys *store.UserKeys) string
	Submit(ctx context.Context, keys *store.UserKeys, destination string, amount uint64) (txHash string, err error)
	Confirm(ctx context.Context, txHash string) error
}

// Result is the uniform success shape of a gasless transfer.
type Result struct {
	Success     bool    `json:"success"`
	TxHash      string  `json:"txHash"`
	Network     Network `json:"network"`
	Amount      string  `json:"amount"`
	FeePayer    string  `json:"feePayer"`
	ExplorerURL string  `json:"explorerUrl"`
}

// Orchestrator executes gasless transfers. It holds one strategy per
// configured network; a network without a strategy has no relayer and
// is refused as a configuration error.
type Orchestrator struct {
	strategies     map[Network]Strategy
	oracle         Oracle
	keys           KeyStore
	ledger         Ledger
	confirmTimeout time.Duration
}

// New builds an orchestrator over the given collaborators.
func New(oracle Oracle, keys KeyStore, ledger Ledger, confirmTimeout time.Duration, strategies ...Strategy) *Orchestrator {
	m := make(map[Network]Strategy, len(strategies))
	for _, s := range strategies {
		m[s.Network()] = s
	}
	return &Orchestrator{
		strategies:     m,
		oracle:         oracle,
		keys:           keys,
		ledger:         ledger,
		confirmTimeout: confirmTimeout,
	}
}

// Execute runs one gasless transfer attempt against the pending ledger
// record transferID. Preconditions are checked configuration-first and
// relayer-balance before user-balance; no chain submission happens if
// any of them fails. On a confirmation timeout the record is left
// pending for out-of-band reconciliation.
//
// Execute performs no per-user serialization; callers must hold the
// (user, network) lock.
func (o *Orchestrator) Execute(ctx context.Context, userID string, network Network, destination, amount, transferID string) (*Result, error) {
	strat, terr := o.strategyFor(network)
	if terr != nil {
		return nil, o.fail(transferID, terr)
	}

	units, err := ToBaseUnits(amount)
	if err != nil {
		return nil, o.fail(transferID, wrapError(CodeInvalidAmount, "amount is not a valid token quantity", err))
	}
	if units == 0 {
		return nil, o.fail(transferID, newError(CodeInvalidAmount, "amount must be positive"))
	}

	// Relayer balance comes before the user's balance: an underfunded
	// relayer is an operator problem and must fail fast.
	if err := strat.CheckRelayerBalance(ctx); err != nil {
		return nil, o.fail(transferID, asError(err, CodeSubmissionFailed))
	}

	keys, err := o.keys.GetDecryptedKeys(userID)
	if err != nil {
		return nil, o.fail(transferID, wrapError(CodeKeyAccessFailed, "failed to access wallet keys", err))
	}

	userAddress := strat.UserAddress(keys)
	balance, err := o.oracle.TokenBalance(ctx, network, userAddress)
	if err != nil {
		return nil, o.fail(transferID, wrapError(CodeOracleUnavailable, "balance oracle unavailable", err))
	}
	if balance.Cmp(new(big.Int).SetUint64(units)) < 0 {
		observed := FormatBaseUnits(balance)
		terr := newError(CodeInsufficientUserBalance, "user balance "+observed+" is below requested "+FromBaseUnits(units))
		terr.ObservedBalance = observed
		return nil, o.fail(transferID, terr)
	}

	logger.InfoCF("transfer", "Preconditions passed, submitting", map[string]any{
		"transfer": transferID,
		"network":  string(network),
		"user":     userID,
		"amount":   FromBaseUnits(units),
	})

	txHash, err := strat.Submit(ctx, keys, destination, units)
	if err != nil {
		return nil, o.fail(transferID, asError(err, CodeSubmissionFailed))
	}

	if err := o.ledger.AttachSubmission(transferID, txHash, strat.FeePayer()); err != nil {
		logger.WarnCF("transfer", "Failed to attach tx hash to ledger", map[string]any{
			"transfer": transferID,
			"txHash":   txHash,
			"error":    err.Error(),
		})
	}

	confirmCtx, cancel := context.WithTimeout(ctx, o.confirmTimeout)
	defer cancel()

	if err := strat.Confirm(confirmCtx, txHash); err != nil {
		var terr *Error
		if errors.As(err, &terr) && terr.Code == CodeExecutionFailed {
			// Definitive on-chain failure: terminal.
			return nil, o.fail(transferID, terr)
		}
		// Timeout or an ambiguous confirmation error: the transaction
		// may still land, so the record stays pending.
		logger.WarnCF("transfer", "Confirmation timed out, record left pending", map[string]any{
			"transfer": transferID,
			"txHash":   txHash,
			"error":    err.Error(),
		})
		return nil, wrapError(CodeConfirmationTimeout, "confirmation not observed within bound", err)
	}

	if err := o.ledger.MarkConfirmed(transferID); err != nil {
		logger.WarnCF("transfer", "Failed to mark transfer confirmed", map[string]any{
			"transfer": transferID,
			"error":    err.Error(),
		})
	}

	result := &Result{
		Success:     true,
		TxHash:      txHash,
		Network:     network,
		Amount:      FromBaseUnits(units),
		FeePayer:    strat.FeePayer(),
		ExplorerURL: strat.ExplorerURL(txHash),
	}

	logger.InfoCF("transfer", "Transfer confirmed", map[string]any{
		"transfer": transferID,
		"network":  string(network),
		"txHash":   txHash,
		"feePayer": result.FeePayer,
	})

	return result, nil
}

// strategyFor dispatches over the sealed network set.
func (o *Orchestrator) strategyFor(network Network) (Strategy, *Error) {
	switch network {
	case NetworkEVM, NetworkSolana:
		strat, ok := o.strategies[network]
		if !ok {
			return nil, newError(CodeRelayerNotConfigured, "no relayer configured for network "+string(network))
		}
		return strat, nil
	default:
		return nil, newError(CodeUnsupportedNetwork, "unsupported network "+string(network))
	}
}

// fail terminally marks the ledger record and returns the error. A
// failed attempt is never resubmitted under the same record.
func (o *Orchestrator) fail(transferID string, terr *Error) error {
	if err := o.ledger.MarkFailed(transferID, terr.Reason); err != nil {
		logger.WarnCF("transfer", "Failed to mark transfer failed", map[string]any{
			"transfer": transferID,
			"error":    err.Error(),
		})
	}
	logger.ErrorCF("transfer", "Transfer failed", map[string]any{
		"transfer": transferID,
		"code":     string(terr.Code),
		"reason":   terr.Reason,
	})
	return terr
}

// asError coerces an arbitrary error into a coded transfer error.
func asError(err error, fallback Code) *Error {
	var terr *Error
	if errors.As(err, &terr) {
		return terr
	}
	return wrapError(fallback, err.Error(), err)
}
