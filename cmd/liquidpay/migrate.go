package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/liquidpay/liquidpay/pkg/keycrypto"
	"github.com/liquidpay/liquidpay/pkg/store"
)

func newMigrateWalletsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate-wallets",
		Short: "Encrypt legacy plaintext wallet keys at rest",
		Long: `Re-encrypts every wallet stored before encryption at rest was
introduced. Safe to run repeatedly: already-encrypted wallets are
skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			enc, err := keycrypto.New(cfg.Security.Seed)
			if err != nil {
				return err
			}

			st, err := store.Open(cfg.Database.Path, enc)
			if err != nil {
				return err
			}

			migrated, err := st.MigrateLegacyWallets()
			if err != nil {
				return err
			}

			fmt.Printf("Migrated %d wallet(s) to encrypted storage\n", migrated)
			return nil
		},
	}
}
