package transfer

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/liquidpay/liquidpay/pkg/config"
	"github.com/liquidpay/liquidpay/pkg/evm"
	"github.com/liquidpay/liquidpay/pkg/logger"
	"github.com/liquidpay/liquidpay/pkg/relayer"
	"github.com/liquidpay/liquidpay/pkg/store"
)

// permitValidity bounds how long a signed permit remains usable.
const permitValidity = time.Hour

// EVMClient is the chain surface the strategy needs. *evm.Client
// implements it.
type EVMClient interface {
	NativeBalance(ctx context.Context, address common.Address) (*big.Int, error)
	PermitNonce(ctx context.Context, owner common.Address) (*big.Int, error)
	EstimateFee(ctx context.Context, from common.Address, callData []byte) (*big.Int, error)
	SubmitTokenCall(ctx context.Context, key *ecdsa.PrivateKey, callData []byte) (common.Hash, error)
	WaitReceipt(ctx context.Context, txHash common.Hash, poll time.Duration) (*types.Receipt, error)
}

// EVMStrategy moves USDC on the EVM chain via an EIP-2612 permit
// followed by a relayer-paid transferFrom. The user signs off-chain;
// both transactions are paid for and sequenced by the relayer.
type EVMStrategy struct {
	client     EVMClient
	identity   *relayer.EVMIdentity
	chain      *config.EVMChain
	minBalance *big.Int
	poll       time.Duration
}

// NewEVMStrategy wires the strategy to its chain client and relayer.
func NewEVMStrategy(client EVMClient, identity *relayer.EVMIdentity, chain *config.EVMChain, poll time.Duration) *EVMStrategy {
	return &EVMStrategy{
		client:     client,
		identity:   identity,
		chain:      chain,
		minBalance: chain.MinRelayerBalance(),
		poll:       poll,
	}
}

func (s *EVMStrategy) Network() Network {
	return NetworkEVM
}

func (s *EVMStrategy) FeePayer() string {
	return s.identity.Address.Hex()
}

func (s *EVMStrategy) ExplorerURL(txHash string) string {
	return s.chain.ExplorerURL + txHash
}

func (s *EVMStrategy) UserAddress(keys *store.UserKeys) string {
	return keys.EVMAddress
}

// CheckRelayerBalance verifies the relayer can cover gas for both
// transactions. Falling below the floor is fatal until an operator
// refills the account.
func (s *EVMStrategy) CheckRelayerBalance(ctx context.Context) error {
	balance, err := s.client.NativeBalance(ctx, s.identity.Address)
	if err != nil {
		return wrapError(CodeSubmissionFailed, "failed to read relayer balance", err)
	}
	if balance.Cmp(s.minBalance) < 0 {
		terr := newError(CodeInsufficientRelayerBalance,
			"relayer balance "+balance.String()+" wei below operating floor "+s.minBalance.String()+" wei")
		terr.ObservedBalance = balance.String()
		return terr
	}
	return nil
}

// Submit signs the permit, lands it on-chain, then broadcasts the
// transferFrom and returns its hash. permit and transferFrom are
// strictly sequential: the second depends on the allowance the first
// establishes.
func (s *EVMStrategy) Submit(ctx context.Context, keys *store.UserKeys, destination string, amount uint64) (string, error) {
	if !common.IsHexAddress(destination) {
		return "", newError(CodeInvalidDestination, "destination is not a valid address: "+destination)
	}
	owner := common.HexToAddress(keys.EVMAddress)
	dest := common.HexToAddress(destination)
	value := new(big.Int).SetUint64(amount)

	nonce, err := s.client.PermitNonce(ctx, owner)
	if err != nil {
		return "", wrapError(CodeSubmissionFailed, "failed to read permit nonce", err)
	}
	deadline := big.NewInt(time.Now().Add(permitValidity).Unix())

	v, r, sig, err := evm.SignPermit(keys.EVMKey, s.chain, s.identity.Address, value, nonce, deadline)
	if err != nil {
		return "", wrapError(CodeSubmissionFailed, "failed to sign permit", err)
	}

	permitData := evm.PermitCallData(owner, s.identity.Address, value, deadline, v, r, sig)

	if fee, err := s.client.EstimateFee(ctx, s.identity.Address, permitData); err == nil {
		logger.InfoCF("transfer", "EVM fee estimate", map[string]any{
			"step":    "permit",
			"fee_wei": fee.String(),
		})
	}

	permitHash, err := s.client.SubmitTokenCall(ctx, s.identity.Key, permitData)
	if err != nil {
		return "", wrapError(CodeSubmissionFailed, "failed to submit permit", err)
	}

	receipt, err := s.client.WaitReceipt(ctx, permitHash, s.poll)
	if err != nil {
		return "", wrapError(CodeSubmissionFailed, "failed to confirm permit", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", newError(CodeExecutionFailed, "permit reverted on-chain ("+permitHash.Hex()+")")
	}

	logger.InfoCF("transfer", "Permit landed", map[string]any{
		"txHash": permitHash.Hex(),
		"owner":  owner.Hex(),
	})

	// The allowance now exists on-chain. If the transferFrom below
	// fails, the residual allowance equals this attempt's amount and
	// expires with the permit deadline.
	transferData := evm.TransferFromCallData(owner, dest, value)
	txHash, err := s.client.SubmitTokenCall(ctx, s.identity.Key, transferData)
	if err != nil {
		return "", wrapError(CodeSubmissionFailed, "failed to submit transferFrom", err)
	}

	return txHash.Hex(), nil
}

// Confirm waits for the transferFrom receipt. A reverted receipt is a
// definitive on-chain failure.
func (s *EVMStrategy) Confirm(ctx context.Context, txHash string) error {
	receipt, err := s.client.WaitReceipt(ctx, common.HexToHash(txHash), s.poll)
	if err != nil {
		return err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return newError(CodeExecutionFailed, "transferFrom reverted on-chain ("+txHash+")")
	}
	return nil
}
