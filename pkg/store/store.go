// Package store persists wallets and transfer records in SQLite and
// is the only component that ever sees decrypted private keys.
package store

import (
	"errors"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/liquidpay/liquidpay/pkg/keycrypto"
	"github.com/liquidpay/liquidpay/pkg/logger"
)

var (
	// ErrKeyNotFound is returned when a user has no provisioned wallet.
	ErrKeyNotFound = errors.New("wallet not found for user")

	// ErrWalletInactive is returned when the wallet has been disabled.
	ErrWalletInactive = errors.New("wallet is inactive")

	// ErrKeyMismatch is returned when an address recomputed from a
	// decrypted key does not equal the stored address.
	ErrKeyMismatch = errors.New("stored address does not match private key")

	// ErrTransferNotFound is returned for unknown transfer IDs.
	ErrTransferNotFound = errors.New("transfer not found")

	// ErrTerminalState is returned when updating a transfer that is
	// already confirmed or failed.
	ErrTerminalState = errors.New("transfer already in terminal state")
)

// Store wraps the gorm connection and the encryption provider.
type Store struct {
	db  *gorm.DB
	enc *keycrypto.Provider
}

// Open opens (creating if needed) the SQLite database at dbPath and
// runs migrations.
func Open(dbPath string, enc *keycrypto.Provider) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Wallet{}, &Transfer{}); err != nil {
		return nil, err
	}

	logger.InfoCF("store", "Database opened", map[string]any{
		"path": dbPath,
	})

	return &Store{db: db, enc: enc}, nil
}
