package store

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateTransfer opens a new pending transfer record.
func (s *Store) CreateTransfer(userID, network, amount, destination string) (*Transfer, error) {
	t := &Transfer{
		ID:          uuid.NewString(),
		UserID:      userID,
		Network:     network,
		Amount:      amount,
		Destination: destination,
		Status:      StatusPending,
	}
	if err := s.db.Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

// GetTransfer fetches a transfer record by ID.
func (s *Store) GetTransfer(id string) (*Transfer, error) {
	var t Transfer
	if err := s.db.Where("id = ?", id).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransferNotFound
		}
		return nil, err
	}
	return &t, nil
}

// ListUserTransfers returns a user's transfer history, newest first.
func (s *Store) ListUserTransfers(userID string, limit int) ([]Transfer, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var ts []Transfer
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&ts).Error
	return ts, err
}

// AttachSubmission records the on-chain transaction identifier and the
// fee payer once the transaction has been broadcast. Only valid while
// the record is still pending.
func (s *Store) AttachSubmission(id, txHash, feePayer string) error {
	return s.guardedUpdate(id, map[string]any{
		"tx_hash":   txHash,
		"fee_payer": feePayer,
	})
}

// MarkConfirmed moves a pending transfer to its terminal success state.
func (s *Store) MarkConfirmed(id string) error {
	return s.guardedUpdate(id, map[string]any{
		"status": StatusConfirmed,
	})
}

// MarkFailed moves a pending transfer to its terminal failure state
// with a human-readable reason.
func (s *Store) MarkFailed(id, reason string) error {
	return s.guardedUpdate(id, map[string]any{
		"status":         StatusFailed,
		"failure_reason": reason,
	})
}

// guardedUpdate applies updates only while the record is pending, so a
// terminal status can never transition again regardless of how many
// times the update path runs.
func (s *Store) guardedUpdate(id string, updates map[string]any) error {
	res := s.db.Model(&Transfer{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var t Transfer
		if err := s.db.Where("id = ?", id).First(&t).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTransferNotFound
			}
			return err
		}
		return ErrTerminalState
	}
	return nil
}
