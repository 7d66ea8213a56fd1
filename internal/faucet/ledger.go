package faucet

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bsv-faucet/faucet/internal/store"
)

// reserve inserts a pending history record for userHash. The amount is the
// calculator's value at the ordinal the record occupies, evaluated by the
// store atomically with the insert so two reservations never see the same
// ordinal.
func (s *Service) reserve(ctx context.Context, userHash string) (*store.HistoryRecord, error) {
	record, err := s.store.ReservePending(ctx, userHash, s.calculator.Calculate)
	if err != nil {
		return nil, errors.Join(ErrLedgerUnavailable, err)
	}

	return record, nil
}

// rollback removes a pending reservation after a failed broadcast. The
// parent context may already be canceled, the delete still has to run.
func (s *Service) rollback(ctx context.Context, recordID int64) error {
	err := s.store.Delete(context.WithoutCancel(ctx), recordID)
	if err != nil {
		s.logger.Error("failed to roll back payout reservation",
			slog.Int64("recordId", recordID),
			slog.String("err", err.Error()),
		)
		return errors.Join(ErrLedgerUnavailable, err)
	}

	if s.stats != nil {
		s.stats.payoutsRolledBack.Inc()
	}

	return nil
}
