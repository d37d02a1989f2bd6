package sol

import (
	"testing"

	"github.com/gagliardetto/solana-go"
)

func testParams(t *testing.T, createDest bool) (SponsoredTransferParams, solana.PrivateKey, solana.PrivateKey) {
	t.Helper()
	user := solana.NewWallet()
	relayer := solana.NewWallet()
	destOwner := solana.NewWallet()
	mint := solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")

	source, _, err := solana.FindAssociatedTokenAddress(user.PublicKey(), mint)
	if err != nil {
		t.Fatal(err)
	}
	dest, _, err := solana.FindAssociatedTokenAddress(destOwner.PublicKey(), mint)
	if err != nil {
		t.Fatal(err)
	}

	var blockhash solana.Hash
	copy(blockhash[:], []byte("test-blockhash-test-blockhash-00"))

	return SponsoredTransferParams{
		Blockhash:  blockhash,
		FeePayer:   relayer.PublicKey(),
		Owner:      user.PublicKey(),
		DestOwner:  destOwner.PublicKey(),
		Mint:       mint,
		Source:     source,
		Dest:       dest,
		Amount:     2_500_000, // 2.5 USDC
		Decimals:   6,
		CreateDest: createDest,
	}, user.PrivateKey, relayer.PrivateKey
}

func programID(t *testing.T, tx *solana.Transaction, ix solana.CompiledInstruction) solana.PublicKey {
	t.Helper()
	id, err := tx.Message.Program(ix.ProgramIDIndex)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestBuildSponsoredTransfer_RelayerIsFeePayer(t *testing.T) {
	p, _, _ := testParams(t, false)
	tx, err := BuildSponsoredTransfer(p)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	// The fee payer is the first account key on a Solana message.
	if tx.Message.AccountKeys[0] != p.FeePayer {
		t.Errorf("fee payer = %s, want relayer %s", tx.Message.AccountKeys[0], p.FeePayer)
	}
	if len(tx.Message.Instructions) != 1 {
		t.Fatalf("instructions = %d, want 1", len(tx.Message.Instructions))
	}
	if got := programID(t, tx, tx.Message.Instructions[0]); got != solana.TokenProgramID {
		t.Errorf("program = %s, want token program", got)
	}
}

func TestBuildSponsoredTransfer_CreatesDestAccountFirst(t *testing.T) {
	p, _, _ := testParams(t, true)
	tx, err := BuildSponsoredTransfer(p)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if len(tx.Message.Instructions) != 2 {
		t.Fatalf("instructions = %d, want 2", len(tx.Message.Instructions))
	}
	if got := programID(t, tx, tx.Message.Instructions[0]); got != solana.SPLAssociatedTokenAccountProgramID {
		t.Errorf("first program = %s, want associated token account program", got)
	}
	if got := programID(t, tx, tx.Message.Instructions[1]); got != solana.TokenProgramID {
		t.Errorf("second program = %s, want token program", got)
	}
	if tx.Message.AccountKeys[0] != p.FeePayer {
		t.Errorf("fee payer = %s, want relayer", tx.Message.AccountKeys[0])
	}
}

func TestSignSponsoredTransfer_DualSignatures(t *testing.T) {
	p, userKey, relayerKey := testParams(t, true)
	tx, err := BuildSponsoredTransfer(p)
	if err != nil {
		t.Fatal(err)
	}

	if err := SignSponsoredTransfer(tx, userKey, relayerKey); err != nil {
		t.Fatalf("sign: %v", err)
	}

	// Both the fee payer and the transfer authority must have signed.
	if got := int(tx.Message.Header.NumRequiredSignatures); got != 2 {
		t.Fatalf("required signatures = %d, want 2", got)
	}
	if len(tx.Signatures) != 2 {
		t.Fatalf("signatures = %d, want 2", len(tx.Signatures))
	}
	if err := tx.VerifySignatures(); err != nil {
		t.Errorf("signature verification: %v", err)
	}
}
