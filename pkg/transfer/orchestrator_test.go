package transfer

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/liquidpay/liquidpay/pkg/store"
)

type fakeStrategy struct {
	network    Network
	relayerErr error
	submitHash string
	submitErr  error
	confirmErr error
	calls      []string
}

func (f *fakeStrategy) Network() Network            { return f.network }
func (f *fakeStrategy) FeePayer() string            { return "fee-payer" }
func (f *fakeStrategy) ExplorerURL(h string) string { return "https://scan/" + h }
func (f *fakeStrategy) UserAddress(keys *store.UserKeys) string {
	return "user-address"
}

func (f *fakeStrategy) CheckRelayerBalance(ctx context.Context) error {
	f.calls = append(f.calls, "check_relayer")
	return f.relayerErr
}

func (f *fakeStrategy) Submit(ctx context.Context, keys *store.UserKeys, destination string, amount uint64) (string, error) {
	f.calls = append(f.calls, "submit")
	return f.submitHash, f.submitErr
}

func (f *fakeStrategy) Confirm(ctx context.Context, txHash string) error {
	f.calls = append(f.calls, "confirm")
	return f.confirmErr
}

type fakeOracle struct {
	balance *big.Int
	err     error
	calls   int
}

func (f *fakeOracle) TokenBalance(ctx context.Context, network Network, address string) (*big.Int, error) {
	f.calls++
	return f.balance, f.err
}

type fakeKeys struct {
	err error
}

func (f *fakeKeys) GetDecryptedKeys(userID string) (*store.UserKeys, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &store.UserKeys{EVMAddress: "0xuser", SolanaAddress: "SoLUser"}, nil
}

type fakeLedger struct {
	txHash        string
	feePayer      string
	confirmed     bool
	failedReason  string
	failedCalls   int
	attachedCalls int
}

func (f *fakeLedger) AttachSubmission(id, txHash, feePayer string) error {
	f.attachedCalls++
	f.txHash, f.feePayer = txHash, feePayer
	return nil
}

func (f *fakeLedger) MarkConfirmed(id string) error {
	f.confirmed = true
	return nil
}

func (f *fakeLedger) MarkFailed(id, reason string) error {
	f.failedCalls++
	if f.failedReason == "" {
		f.failedReason = reason
	}
	return nil
}

func newTestOrchestrator(strat *fakeStrategy, oracle *fakeOracle, keys *fakeKeys, ledger *fakeLedger) *Orchestrator {
	return New(oracle, keys, ledger, 5*time.Second, strat)
}

func codeOf(t *testing.T, err error) Code {
	t.Helper()
	var terr *Error
	if !errors.As(err, &terr) {
		t.Fatalf("error %v is not a transfer.Error", err)
	}
	return terr.Code
}

func TestExecute_Success(t *testing.T) {
	strat := &fakeStrategy{network: NetworkEVM, submitHash: "0xhash"}
	oracle := &fakeOracle{balance: big.NewInt(20_000_000)}
	ledger := &fakeLedger{}

	res, err := newTestOrchestrator(strat, oracle, &fakeKeys{}, ledger).
		Execute(context.Background(), "u1", NetworkEVM, "0xdest", "10.00", "t1")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if !res.Success || res.TxHash != "0xhash" || res.Network != NetworkEVM {
		t.Errorf("result = %+v", res)
	}
	if res.Amount != "10" || res.FeePayer != "fee-payer" || res.ExplorerURL != "https://scan/0xhash" {
		t.Errorf("result = %+v", res)
	}
	if ledger.txHash != "0xhash" || ledger.feePayer != "fee-payer" {
		t.Errorf("ledger submission = %q/%q", ledger.txHash, ledger.feePayer)
	}
	if !ledger.confirmed || ledger.failedCalls != 0 {
		t.Errorf("ledger terminal state wrong: %+v", ledger)
	}
}

func TestExecute_InsufficientUserBalance_NoSubmission(t *testing.T) {
	strat := &fakeStrategy{network: NetworkEVM}
	oracle := &fakeOracle{balance: big.NewInt(5_000_000)} // 5.00 USDC
	ledger := &fakeLedger{}

	_, err := newTestOrchestrator(strat, oracle, &fakeKeys{}, ledger).
		Execute(context.Background(), "u1", NetworkEVM, "0xdest", "10.00", "t1")
	if codeOf(t, err) != CodeInsufficientUserBalance {
		t.Fatalf("code = %v", codeOf(t, err))
	}

	var terr *Error
	errors.As(err, &terr)
	if terr.ObservedBalance != "5" {
		t.Errorf("ObservedBalance = %q, want %q", terr.ObservedBalance, "5")
	}
	for _, call := range strat.calls {
		if call == "submit" || call == "confirm" {
			t.Errorf("chain submission attempted after failed precondition: %v", strat.calls)
		}
	}
	if ledger.failedCalls != 1 {
		t.Errorf("failedCalls = %d", ledger.failedCalls)
	}
}

func TestExecute_RelayerNotConfigured(t *testing.T) {
	oracle := &fakeOracle{balance: big.NewInt(1)}
	ledger := &fakeLedger{}
	// No solana strategy registered.
	orch := New(oracle, &fakeKeys{}, ledger, time.Second,
		&fakeStrategy{network: NetworkEVM})

	_, err := orch.Execute(context.Background(), "u1", NetworkSolana, "dest", "1", "t1")
	if codeOf(t, err) != CodeRelayerNotConfigured {
		t.Fatalf("code = %v", codeOf(t, err))
	}
	if oracle.calls != 0 {
		t.Error("oracle consulted for unconfigured network")
	}
}

func TestExecute_UnsupportedNetwork(t *testing.T) {
	orch := New(&fakeOracle{}, &fakeKeys{}, &fakeLedger{}, time.Second)
	_, err := orch.Execute(context.Background(), "u1", Network("tron"), "dest", "1", "t1")
	if codeOf(t, err) != CodeUnsupportedNetwork {
		t.Fatalf("code = %v", codeOf(t, err))
	}
}

func TestExecute_InvalidAmount(t *testing.T) {
	for _, amount := range []string{"abc", "0", "-3", ""} {
		strat := &fakeStrategy{network: NetworkEVM}
		orch := newTestOrchestrator(strat, &fakeOracle{}, &fakeKeys{}, &fakeLedger{})

		_, err := orch.Execute(context.Background(), "u1", NetworkEVM, "0xdest", amount, "t1")
		if codeOf(t, err) != CodeInvalidAmount {
			t.Errorf("amount %q: code = %v", amount, codeOf(t, err))
		}
		if len(strat.calls) != 0 {
			t.Errorf("amount %q: strategy touched: %v", amount, strat.calls)
		}
	}
}

func TestExecute_RelayerBalanceCheckedBeforeUserBalance(t *testing.T) {
	strat := &fakeStrategy{
		network:    NetworkSolana,
		relayerErr: newError(CodeInsufficientRelayerBalance, "relayer balance 0 lamports below operating floor"),
	}
	oracle := &fakeOracle{balance: big.NewInt(1_000_000_000)}
	ledger := &fakeLedger{}

	_, err := newTestOrchestrator(strat, oracle, &fakeKeys{}, ledger).
		Execute(context.Background(), "u1", NetworkSolana, "dest", "1", "t1")
	if codeOf(t, err) != CodeInsufficientRelayerBalance {
		t.Fatalf("code = %v", codeOf(t, err))
	}
	if oracle.calls != 0 {
		t.Error("user balance checked after relayer precondition failed")
	}
	for _, call := range strat.calls {
		if call == "submit" {
			t.Error("submission attempted with underfunded relayer")
		}
	}
}

func TestExecute_KeyAccessFailure(t *testing.T) {
	strat := &fakeStrategy{network: NetworkEVM}
	oracle := &fakeOracle{balance: big.NewInt(1)}
	keys := &fakeKeys{err: store.ErrKeyNotFound}

	_, err := newTestOrchestrator(strat, oracle, keys, &fakeLedger{}).
		Execute(context.Background(), "u1", NetworkEVM, "0xdest", "1", "t1")
	if codeOf(t, err) != CodeKeyAccessFailed {
		t.Fatalf("code = %v", codeOf(t, err))
	}
	if oracle.calls != 0 {
		t.Error("oracle consulted without keys")
	}
	if !errors.Is(err, store.ErrKeyNotFound) {
		t.Error("underlying cause not wrapped")
	}
}

func TestExecute_OracleUnavailable(t *testing.T) {
	strat := &fakeStrategy{network: NetworkEVM}
	oracle := &fakeOracle{err: errors.New("rpc: connection refused")}

	_, err := newTestOrchestrator(strat, oracle, &fakeKeys{}, &fakeLedger{}).
		Execute(context.Background(), "u1", NetworkEVM, "0xdest", "1", "t1")
	if codeOf(t, err) != CodeOracleUnavailable {
		t.Fatalf("code = %v", codeOf(t, err))
	}

	var terr *Error
	errors.As(err, &terr)
	if !terr.Retryable() {
		t.Error("oracle failure should be retryable")
	}
}

func TestExecute_SubmitFailure(t *testing.T) {
	strat := &fakeStrategy{
		network:   NetworkEVM,
		submitErr: wrapError(CodeSubmissionFailed, "failed to submit permit", errors.New("nonce too low")),
	}
	ledger := &fakeLedger{}

	_, err := newTestOrchestrator(strat, &fakeOracle{balance: big.NewInt(10_000_000)}, &fakeKeys{}, ledger).
		Execute(context.Background(), "u1", NetworkEVM, "0xdest", "1", "t1")
	if codeOf(t, err) != CodeSubmissionFailed {
		t.Fatalf("code = %v", codeOf(t, err))
	}
	if ledger.attachedCalls != 0 {
		t.Error("tx hash attached for failed submission")
	}
	if ledger.failedReason != "failed to submit permit" {
		t.Errorf("failure reason = %q", ledger.failedReason)
	}
}

func TestExecute_OnChainFailureIsTerminal(t *testing.T) {
	strat := &fakeStrategy{
		network:    NetworkEVM,
		submitHash: "0xhash",
		confirmErr: newError(CodeExecutionFailed, "transferFrom reverted on-chain (0xhash)"),
	}
	ledger := &fakeLedger{}

	_, err := newTestOrchestrator(strat, &fakeOracle{balance: big.NewInt(10_000_000)}, &fakeKeys{}, ledger).
		Execute(context.Background(), "u1", NetworkEVM, "0xdest", "1", "t1")
	if codeOf(t, err) != CodeExecutionFailed {
		t.Fatalf("code = %v", codeOf(t, err))
	}

	if ledger.failedCalls != 1 {
		t.Errorf("failedCalls = %d, want 1", ledger.failedCalls)
	}
	if ledger.failedReason != "transferFrom reverted on-chain (0xhash)" {
		t.Errorf("failure reason = %q", ledger.failedReason)
	}

	// Exactly one submission attempt per invocation.
	submits := 0
	for _, call := range strat.calls {
		if call == "submit" {
			submits++
		}
	}
	if submits != 1 {
		t.Errorf("submit calls = %d, want 1", submits)
	}
}

func TestExecute_ConfirmationTimeoutLeavesPending(t *testing.T) {
	strat := &fakeStrategy{
		network:    NetworkEVM,
		submitHash: "0xhash",
		confirmErr: context.DeadlineExceeded,
	}
	ledger := &fakeLedger{}

	_, err := newTestOrchestrator(strat, &fakeOracle{balance: big.NewInt(10_000_000)}, &fakeKeys{}, ledger).
		Execute(context.Background(), "u1", NetworkEVM, "0xdest", "1", "t1")
	if codeOf(t, err) != CodeConfirmationTimeout {
		t.Fatalf("code = %v", codeOf(t, err))
	}

	// Ambiguous outcome: the record must stay pending, never failed.
	if ledger.failedCalls != 0 || ledger.confirmed {
		t.Errorf("ledger mutated on timeout: %+v", ledger)
	}
	if ledger.txHash != "0xhash" {
		t.Error("tx hash should be attached for reconciliation")
	}
}
