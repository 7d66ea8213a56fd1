package faucet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bsv-faucet/faucet/internal/identity"
	"github.com/bsv-faucet/faucet/internal/payout"
	"github.com/bsv-faucet/faucet/internal/store"
)

const DefaultMinimumAccountAgeMonths = 6

var (
	// ErrNotEligible wraps the specific rejection reason. Handlers map it to
	// a client error, everything else is a server fault.
	ErrNotEligible = errors.New("user is not eligible for a payout")

	ErrUserHashMissing         = errors.New("user hash claim not found")
	ErrAccountCreatedAtMissing = errors.New("account creation date claim not found")
	ErrAccountCreatedAtInvalid = errors.New("account creation date claim is not a valid timestamp")
	ErrAccountTooNew           = errors.New("user account is too new")
	ErrAlreadyReceived         = errors.New("user account already received coins")
	ErrLedgerUnavailable       = errors.New("payout history is unavailable")
	ErrFinalizationFailed      = errors.New("payout was broadcast but could not be recorded")
)

// PayoutWallet is the part of the wallet the faucet needs.
type PayoutWallet interface {
	Send(ctx context.Context, receivingAddress string, amount uint64) (string, error)
	Balance(ctx context.Context) (uint64, error)
}

// Receipt describes one completed disbursement.
type Receipt struct {
	TransactionID string
	Amount        int64
}

// Service orchestrates a disbursement: eligibility, reservation, broadcast
// and finalization. A single lock serializes the reserve-to-finalize span so
// the payout ordinal observed by the calculator matches the row the
// reservation inserts.
type Service struct {
	logger     *slog.Logger
	store      store.HistoryStore
	wallet     PayoutWallet
	calculator *payout.Calculator
	stats      *Stats

	adminUserHash           string
	minimumAccountAgeMonths int

	requestTrackerMu sync.Mutex
	now              func() time.Time
}

func WithNow(nowFunc func() time.Time) func(*Service) {
	return func(s *Service) {
		s.now = nowFunc
	}
}

// WithAdminUserHash marks one user hash as exempt from the eligibility rules.
func WithAdminUserHash(userHash string) func(*Service) {
	return func(s *Service) {
		s.adminUserHash = userHash
	}
}

func WithMinimumAccountAgeMonths(months int) func(*Service) {
	return func(s *Service) {
		s.minimumAccountAgeMonths = months
	}
}

func WithStats(stats *Stats) func(*Service) {
	return func(s *Service) {
		s.stats = stats
	}
}

func New(logger *slog.Logger, historyStore store.HistoryStore, wallet PayoutWallet, calculator *payout.Calculator, opts ...func(*Service)) *Service {
	s := &Service{
		logger:                  logger.With(slog.String("service", "faucet")),
		store:                   historyStore,
		wallet:                  wallet,
		calculator:              calculator,
		minimumAccountAgeMonths: DefaultMinimumAccountAgeMonths,
		now:                     time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// CheckEligibility returns nil if the identity may receive a payout, or an
// error wrapping ErrNotEligible naming the first failed rule. The admin user
// bypasses every rule, including the one-payout limit.
func (s *Service) CheckEligibility(ctx context.Context, id identity.Identity) error {
	if id.UserHash == "" {
		return errors.Join(ErrNotEligible, ErrUserHashMissing)
	}

	if s.adminUserHash != "" && id.UserHash == s.adminUserHash {
		return nil
	}

	if id.AccountCreatedAt == "" {
		return errors.Join(ErrNotEligible, ErrAccountCreatedAtMissing)
	}

	createdAt, err := time.Parse(time.RFC3339, id.AccountCreatedAt)
	if err != nil {
		return errors.Join(ErrNotEligible, ErrAccountCreatedAtInvalid, err)
	}

	cutoff := s.now().AddDate(0, -s.minimumAccountAgeMonths, 0)
	if createdAt.After(cutoff) {
		return errors.Join(ErrNotEligible, ErrAccountTooNew)
	}

	received, err := s.store.ExistsByUserHash(ctx, id.UserHash)
	if err != nil {
		return errors.Join(ErrLedgerUnavailable, err)
	}
	if received {
		return errors.Join(ErrNotEligible, ErrAlreadyReceived)
	}

	return nil
}

// Disburse performs one payout to receivingAddress for the given identity and
// returns a receipt with the broadcast transaction id.
//
// The reservation, broadcast and finalization run under one lock. A failed
// broadcast rolls the reservation back so the ordinal is released; a failed
// finalization cannot be rolled back, since the coins are already on the
// wire, and is surfaced as ErrFinalizationFailed with the transaction id.
func (s *Service) Disburse(ctx context.Context, id identity.Identity, receivingAddress string) (*Receipt, error) {
	err := s.CheckEligibility(ctx, id)
	if err != nil {
		if s.stats != nil && errors.Is(err, ErrNotEligible) {
			s.stats.payoutsRejected.Inc()
		}
		return nil, err
	}

	s.requestTrackerMu.Lock()
	defer s.requestTrackerMu.Unlock()

	record, err := s.reserve(ctx, id.UserHash)
	if err != nil {
		return nil, err
	}

	txID, err := s.wallet.Send(ctx, receivingAddress, uint64(record.Amount))
	if err != nil {
		rollbackErr := s.rollback(ctx, record.ID)
		if rollbackErr != nil {
			return nil, errors.Join(err, rollbackErr)
		}

		return nil, err
	}

	err = s.store.Finalize(context.WithoutCancel(ctx), record.ID, txID)
	if err != nil {
		return nil, errors.Join(ErrFinalizationFailed, fmt.Errorf("transaction id: %s", txID), err)
	}

	s.logger.Info("payout completed",
		slog.String("txid", txID),
		slog.Int64("satoshis", record.Amount),
		slog.Int64("recordId", record.ID),
	)

	if s.stats != nil {
		s.stats.payoutsCompleted.Inc()
		s.stats.satoshisPaidOut.Add(float64(record.Amount))
	}

	return &Receipt{
		TransactionID: txID,
		Amount:        record.Amount,
	}, nil
}

// WalletBalance reports the faucet's spendable balance in satoshis.
func (s *Service) WalletBalance(ctx context.Context) (uint64, error) {
	return s.wallet.Balance(ctx)
}

// History returns the identity's payout records, newest first.
func (s *Service) History(ctx context.Context, id identity.Identity) ([]*store.HistoryRecord, error) {
	records, err := s.store.ListByUserHash(ctx, id.UserHash)
	if err != nil {
		return nil, errors.Join(ErrLedgerUnavailable, err)
	}

	return records, nil
}
