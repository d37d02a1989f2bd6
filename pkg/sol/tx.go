package sol

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/token"
)

// SponsoredTransferParams describes one relayer-sponsored SPL token
// transfer. The fee payer is the relayer, the transfer authority is
// the user.
type SponsoredTransferParams struct {
	Blockhash  solana.Hash
	FeePayer   solana.PublicKey
	Owner      solana.PublicKey
	DestOwner  solana.PublicKey
	Mint       solana.PublicKey
	Source     solana.PublicKey
	Dest       solana.PublicKey
	Amount     uint64
	Decimals   uint8
	CreateDest bool
}

// BuildSponsoredTransfer assembles the dual-authority transaction:
// an optional relayer-funded creation of the destination associated
// token account, followed by the user-authorized transfer. The relayer
// is the transaction's fee payer.
func BuildSponsoredTransfer(p SponsoredTransferParams) (*solana.Transaction, error) {
	instructions := make([]solana.Instruction, 0, 2)

	if p.CreateDest {
		// Account creation must precede the transfer into it, and its
		// rent is paid by the relayer.
		createIx, err := associatedtokenaccount.NewCreateInstruction(
			p.FeePayer,
			p.DestOwner,
			p.Mint,
		).ValidateAndBuild()
		if err != nil {
			return nil, fmt.Errorf("failed to build create-account instruction: %w", err)
		}
		instructions = append(instructions, createIx)
	}

	transferIx, err := token.NewTransferCheckedInstruction(
		p.Amount,
		p.Decimals,
		p.Source,
		p.Mint,
		p.Dest,
		p.Owner,
		nil,
	).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("failed to build transfer instruction: %w", err)
	}
	instructions = append(instructions, transferIx)

	tx, err := solana.NewTransaction(
		instructions,
		p.Blockhash,
		solana.TransactionPayer(p.FeePayer),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction: %w", err)
	}
	return tx, nil
}

// SignSponsoredTransfer applies both required signatures: the user's
// (authorizing the token movement) and the relayer's (authorizing fee
// payment and any account creation).
func SignSponsoredTransfer(tx *solana.Transaction, userKey, relayerKey solana.PrivateKey) error {
	userPub := userKey.PublicKey()
	relayerPub := relayerKey.PublicKey()

	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		switch key {
		case userPub:
			return &userKey
		case relayerPub:
			return &relayerKey
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	return nil
}
