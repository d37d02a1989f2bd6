package store

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gagliardetto/solana-go"
	"gorm.io/gorm"

	"github.com/liquidpay/liquidpay/pkg/logger"
)

// Addresses is the read-only view of a wallet. It never touches key
// material.
type Addresses struct {
	EVMAddress    string
	SolanaAddress string
}

// UserKeys is the scoped decrypted view of a wallet, produced on
// demand and never persisted.
type UserKeys struct {
	EVMKey        *ecdsa.PrivateKey
	EVMAddress    string
	SolanaKey     solana.PrivateKey
	SolanaAddress string
}

// ProvisionWallet returns the user's wallet, creating it if absent.
// Creation generates a fresh keypair per network and persists both
// encrypted. The unique index on user_id guarantees at most one wallet
// per user even under concurrent provisioning.
func (s *Store) ProvisionWallet(userID string) (*Wallet, error) {
	var existing Wallet
	err := s.db.Where("user_id = ?", userID).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	evmKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate evm key: %w", err)
	}
	evmAddress := crypto.PubkeyToAddress(evmKey.PublicKey).Hex()

	solWallet := solana.NewWallet()

	encEVM, err := s.enc.Encrypt([]byte(fmt.Sprintf("%x", crypto.FromECDSA(evmKey))))
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt evm key: %w", err)
	}
	encSol, err := s.enc.Encrypt([]byte(solWallet.PrivateKey.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt solana key: %w", err)
	}

	w := &Wallet{
		UserID:        userID,
		EVMAddress:    evmAddress,
		EVMKey:        encEVM,
		SolanaAddress: solWallet.PublicKey().String(),
		SolanaKey:     encSol,
		Active:        true,
		Encrypted:     true,
	}

	if err := s.db.Create(w).Error; err != nil {
		// Lost a provisioning race: the unique index rejected the
		// duplicate, so the winner's row is authoritative.
		var raced Wallet
		if ferr := s.db.Where("user_id = ?", userID).First(&raced).Error; ferr == nil {
			return &raced, nil
		}
		return nil, err
	}

	logger.InfoCF("store", "Wallet provisioned", map[string]any{
		"user":   userID,
		"evm":    w.EVMAddress,
		"solana": w.SolanaAddress,
	})

	return w, nil
}

// GetWalletAddresses returns the wallet addresses for a user.
func (s *Store) GetWalletAddresses(userID string) (*Addresses, error) {
	var w Wallet
	if err := s.db.Where("user_id = ?", userID).First(&w).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return &Addresses{EVMAddress: w.EVMAddress, SolanaAddress: w.SolanaAddress}, nil
}

// GetDecryptedKeys decrypts both private keys for a user. Decryption
// failures propagate as-is; a legacy plaintext record (Encrypted=false)
// is read raw, discriminated only by the stored flag. The decrypted
// keys are verified against the stored addresses before being handed
// out.
func (s *Store) GetDecryptedKeys(userID string) (*UserKeys, error) {
	var w Wallet
	if err := s.db.Where("user_id = ?", userID).First(&w).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	if !w.Active {
		return nil, ErrWalletInactive
	}

	rawEVM, rawSol, err := s.keyMaterial(&w)
	if err != nil {
		return nil, err
	}

	evmKey, err := crypto.HexToECDSA(string(rawEVM))
	if err != nil {
		return nil, fmt.Errorf("failed to parse evm key: %w", err)
	}
	solKey, err := solana.PrivateKeyFromBase58(string(rawSol))
	if err != nil {
		return nil, fmt.Errorf("failed to parse solana key: %w", err)
	}

	// Address/key correspondence has been violated before; verify it on
	// every decrypt instead of trusting the row.
	if crypto.PubkeyToAddress(evmKey.PublicKey).Hex() != w.EVMAddress {
		return nil, ErrKeyMismatch
	}
	if solKey.PublicKey().String() != w.SolanaAddress {
		return nil, ErrKeyMismatch
	}

	return &UserKeys{
		EVMKey:        evmKey,
		EVMAddress:    w.EVMAddress,
		SolanaKey:     solKey,
		SolanaAddress: w.SolanaAddress,
	}, nil
}

// SetWalletActive flips the active flag for a user's wallet.
func (s *Store) SetWalletActive(userID string, active bool) error {
	res := s.db.Model(&Wallet{}).Where("user_id = ?", userID).Update("active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrKeyNotFound
	}
	return nil
}

// MigrateLegacyWallets encrypts every plaintext legacy record and
// flips its flag. The transition happens exactly once per record; an
// already-encrypted wallet is never touched.
func (s *Store) MigrateLegacyWallets() (int, error) {
	var legacy []Wallet
	if err := s.db.Where("encrypted = ?", false).Find(&legacy).Error; err != nil {
		return 0, err
	}

	migrated := 0
	for i := range legacy {
		w := &legacy[i]
		encEVM, err := s.enc.Encrypt(w.EVMKey)
		if err != nil {
			return migrated, fmt.Errorf("user %s: %w", w.UserID, err)
		}
		encSol, err := s.enc.Encrypt(w.SolanaKey)
		if err != nil {
			return migrated, fmt.Errorf("user %s: %w", w.UserID, err)
		}

		updates := map[string]any{
			"evm_key":    encEVM,
			"solana_key": encSol,
			"encrypted":  true,
		}
		// Guard on the flag so a concurrent migration run cannot
		// double-encrypt a record.
		res := s.db.Model(&Wallet{}).
			Where("id = ? AND encrypted = ?", w.ID, false).
			Updates(updates)
		if res.Error != nil {
			return migrated, res.Error
		}
		if res.RowsAffected == 1 {
			migrated++
			logger.InfoCF("store", "Wallet migrated to encrypted storage", map[string]any{
				"user": w.UserID,
			})
		}
	}

	return migrated, nil
}

func (s *Store) keyMaterial(w *Wallet) (evm, sol []byte, err error) {
	if !w.Encrypted {
		return w.EVMKey, w.SolanaKey, nil
	}
	if evm, err = s.enc.Decrypt(w.EVMKey); err != nil {
		return nil, nil, err
	}
	if sol, err = s.enc.Decrypt(w.SolanaKey); err != nil {
		return nil, nil, err
	}
	return evm, sol, nil
}
