package transfer

import (
	"context"
	"errors"
	"time"

	"github.com/liquidpay/liquidpay/pkg/metrics"
	"github.com/liquidpay/liquidpay/pkg/store"
)

// RecordStore is the ledger surface the service needs on top of the
// orchestrator's Ledger: opening records and reading them back.
type RecordStore interface {
	CreateTransfer(userID, network, amount, destination string) (*store.Transfer, error)
	GetTransfer(id string) (*store.Transfer, error)
	ListUserTransfers(userID string, limit int) ([]store.Transfer, error)
}

// Service is the transfer acceptance boundary. It opens the ledger
// record, serializes execution per (user, network) pair, and reports
// metrics. The orchestrator below it is deliberately lock-free.
type Service struct {
	orch    *Orchestrator
	records RecordStore
	locks   *KeyedMutex
}

// NewService builds the acceptance boundary over an orchestrator.
func NewService(orch *Orchestrator, records RecordStore) *Service {
	return &Service{
		orch:    orch,
		records: records,
		locks:   NewKeyedMutex(),
	}
}

// Submit accepts one transfer request, runs it to a terminal state (or
// the confirmation-timeout outcome), and returns the ledger record
// alongside the result. Concurrent submissions for the same user and
// network are executed one at a time.
func (s *Service) Submit(ctx context.Context, userID, network, destination, amount string) (*store.Transfer, *Result, error) {
	net, err := ParseNetwork(network)
	if err != nil {
		return nil, nil, wrapError(CodeUnsupportedNetwork, err.Error(), err)
	}

	rec, err := s.records.CreateTransfer(userID, string(net), amount, destination)
	if err != nil {
		return nil, nil, err
	}

	unlock := s.locks.Lock(userID + "|" + string(net))
	defer unlock()

	start := time.Now()
	result, execErr := s.orch.Execute(ctx, userID, net, destination, amount, rec.ID)
	metrics.TransferDuration.WithLabelValues(string(net)).Observe(time.Since(start).Seconds())
	metrics.TransfersTotal.WithLabelValues(string(net), outcomeLabel(execErr)).Inc()

	if refreshed, gerr := s.records.GetTransfer(rec.ID); gerr == nil {
		rec = refreshed
	}
	return rec, result, execErr
}

// Get reads a transfer record back.
func (s *Service) Get(id string) (*store.Transfer, error) {
	return s.records.GetTransfer(id)
}

// ListForUser returns a user's transfer history, newest first.
func (s *Service) ListForUser(userID string, limit int) ([]store.Transfer, error) {
	return s.records.ListUserTransfers(userID, limit)
}

func outcomeLabel(err error) string {
	if err == nil {
		return "confirmed"
	}
	var terr *Error
	if errors.As(err, &terr) && terr.Code == CodeConfirmationTimeout {
		return "pending_timeout"
	}
	return "failed"
}
