package store

import "time"

// Wallet holds one custodial wallet pair (EVM + Solana) per user.
// Private keys are stored encrypted; Encrypted=false marks a legacy
// plaintext record awaiting migration. The flag is the only
// discriminator between the two formats.
type Wallet struct {
	ID            uint   `gorm:"primaryKey"`
	UserID        string `gorm:"uniqueIndex;not null"`
	EVMAddress    string `gorm:"not null;type:varchar(42)"`
	EVMKey        []byte `gorm:"not null"`
	SolanaAddress string `gorm:"not null;type:varchar(44)"`
	SolanaKey     []byte `gorm:"not null"`
	Active        bool   `gorm:"not null;default:true"`
	Encrypted     bool   `gorm:"not null;default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Transfer statuses. Transitions are monotonic: pending is the only
// non-terminal state, confirmed and failed are never left.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusFailed    = "failed"
)

// Transfer is one attempt to move USDC from a user wallet to a
// destination address. Failed attempts are resubmitted as new records,
// never mutated back to pending.
type Transfer struct {
	ID            string `gorm:"primaryKey;type:varchar(36)"`
	UserID        string `gorm:"index;not null"`
	Network       string `gorm:"not null;type:varchar(10)"`
	Amount        string `gorm:"not null;type:varchar(32)"`
	Destination   string `gorm:"not null;type:varchar(64)"`
	TxHash        string `gorm:"type:varchar(96)"`
	FeePayer      string `gorm:"type:varchar(64)"`
	Status        string `gorm:"not null;type:varchar(10);default:pending"`
	FailureReason string `gorm:"type:text"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
