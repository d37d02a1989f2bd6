package transfer

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/liquidpay/liquidpay/pkg/config"
	"github.com/liquidpay/liquidpay/pkg/relayer"
	"github.com/liquidpay/liquidpay/pkg/store"
)

var (
	permitSelector       = []byte{0xd5, 0x05, 0xac, 0xcf}
	transferFromSelector = []byte{0x23, 0xb8, 0x72, 0xdd}
)

type fakeEVMClient struct {
	native        *big.Int
	submitted     [][]byte
	submitErrs    []error
	receiptStatus []uint64
	receiptErr    error
}

func (f *fakeEVMClient) NativeBalance(ctx context.Context, address common.Address) (*big.Int, error) {
	if f.native == nil {
		return big.NewInt(1_000_000_000), nil
	}
	return f.native, nil
}

func (f *fakeEVMClient) PermitNonce(ctx context.Context, owner common.Address) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (f *fakeEVMClient) EstimateFee(ctx context.Context, from common.Address, callData []byte) (*big.Int, error) {
	return big.NewInt(21000), nil
}

func (f *fakeEVMClient) SubmitTokenCall(ctx context.Context, key *ecdsa.PrivateKey, callData []byte) (common.Hash, error) {
	i := len(f.submitted)
	f.submitted = append(f.submitted, callData)
	if i < len(f.submitErrs) && f.submitErrs[i] != nil {
		return common.Hash{}, f.submitErrs[i]
	}
	return common.BytesToHash([]byte{byte(i + 1)}), nil
}

func (f *fakeEVMClient) WaitReceipt(ctx context.Context, txHash common.Hash, poll time.Duration) (*types.Receipt, error) {
	if f.receiptErr != nil {
		return nil, f.receiptErr
	}
	status := types.ReceiptStatusSuccessful
	if len(f.receiptStatus) > 0 {
		status = f.receiptStatus[0]
		f.receiptStatus = f.receiptStatus[1:]
	}
	return &types.Receipt{Status: status}, nil
}

func newEVMTestStrategy(t *testing.T, client *fakeEVMClient) (*EVMStrategy, *store.UserKeys) {
	t.Helper()

	userKey, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	relayerKey, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	identity := &relayer.EVMIdentity{
		Key:     relayerKey,
		Address: crypto.PubkeyToAddress(relayerKey.PublicKey),
	}
	chain := &config.EVMChain{
		Name:                 "base",
		ChainID:              8453,
		TokenAddress:         "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		TokenName:            "USD Coin",
		TokenVersion:         "2",
		MinRelayerBalanceWei: "1000",
		ExplorerURL:          "https://basescan.org/tx/",
	}
	keys := &store.UserKeys{
		EVMKey:     userKey,
		EVMAddress: crypto.PubkeyToAddress(userKey.PublicKey).Hex(),
	}
	return NewEVMStrategy(client, identity, chain, time.Millisecond), keys
}

func TestEVMStrategy_Submit_PermitThenTransferFrom(t *testing.T) {
	client := &fakeEVMClient{}
	strat, keys := newEVMTestStrategy(t, client)

	hash, err := strat.Submit(context.Background(), keys, "0x2222222222222222222222222222222222222222", 1_000_000)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if len(client.submitted) != 2 {
		t.Fatalf("submissions = %d, want 2", len(client.submitted))
	}
	if !bytes.Equal(client.submitted[0][:4], permitSelector) {
		t.Errorf("first submission selector = %x, want permit", client.submitted[0][:4])
	}
	if !bytes.Equal(client.submitted[1][:4], transferFromSelector) {
		t.Errorf("second submission selector = %x, want transferFrom", client.submitted[1][:4])
	}
	if hash != common.BytesToHash([]byte{2}).Hex() {
		t.Errorf("returned hash = %s, want the transferFrom hash", hash)
	}
}

func TestEVMStrategy_Submit_PermitErrorStopsSequence(t *testing.T) {
	client := &fakeEVMClient{
		submitErrs: []error{errors.New("nonce too low")},
	}
	strat, keys := newEVMTestStrategy(t, client)

	_, err := strat.Submit(context.Background(), keys, "0x2222222222222222222222222222222222222222", 1_000_000)
	if codeOf(t, err) != CodeSubmissionFailed {
		t.Fatalf("code = %v", codeOf(t, err))
	}

	// The failed permit must be the only broadcast attempt.
	if len(client.submitted) != 1 {
		t.Fatalf("submissions = %d, want 1", len(client.submitted))
	}
	if !bytes.Equal(client.submitted[0][:4], permitSelector) {
		t.Errorf("submission selector = %x, want permit", client.submitted[0][:4])
	}
}

func TestEVMStrategy_Submit_PermitRevertStopsSequence(t *testing.T) {
	client := &fakeEVMClient{
		receiptStatus: []uint64{types.ReceiptStatusFailed},
	}
	strat, keys := newEVMTestStrategy(t, client)

	_, err := strat.Submit(context.Background(), keys, "0x2222222222222222222222222222222222222222", 1_000_000)
	if codeOf(t, err) != CodeExecutionFailed {
		t.Fatalf("code = %v", codeOf(t, err))
	}

	if len(client.submitted) != 1 {
		t.Fatalf("submissions = %d, want 1", len(client.submitted))
	}
	if !bytes.Equal(client.submitted[0][:4], permitSelector) {
		t.Errorf("submission selector = %x, want permit", client.submitted[0][:4])
	}
}

func TestEVMStrategy_Submit_InvalidDestination(t *testing.T) {
	client := &fakeEVMClient{}
	strat, keys := newEVMTestStrategy(t, client)

	_, err := strat.Submit(context.Background(), keys, "not-an-address", 1_000_000)
	if codeOf(t, err) != CodeInvalidDestination {
		t.Fatalf("code = %v", codeOf(t, err))
	}
	if len(client.submitted) != 0 {
		t.Errorf("submissions = %d, want 0", len(client.submitted))
	}
}

func TestEVMStrategy_CheckRelayerBalance_BelowFloor(t *testing.T) {
	client := &fakeEVMClient{native: big.NewInt(1)}
	strat, _ := newEVMTestStrategy(t, client)

	err := strat.CheckRelayerBalance(context.Background())
	if codeOf(t, err) != CodeInsufficientRelayerBalance {
		t.Fatalf("code = %v", codeOf(t, err))
	}
	var terr *Error
	errors.As(err, &terr)
	if terr.ObservedBalance != "1" {
		t.Errorf("ObservedBalance = %q, want %q", terr.ObservedBalance, "1")
	}
}

func TestEVMStrategy_Confirm_Revert(t *testing.T) {
	client := &fakeEVMClient{
		receiptStatus: []uint64{types.ReceiptStatusFailed},
	}
	strat, _ := newEVMTestStrategy(t, client)

	err := strat.Confirm(context.Background(), common.BytesToHash([]byte{2}).Hex())
	if codeOf(t, err) != CodeExecutionFailed {
		t.Fatalf("code = %v", codeOf(t, err))
	}
}
