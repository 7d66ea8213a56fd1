package wallet

import (
	"context"
	"log/slog"

	sdkTx "github.com/bsv-blockchain/go-sdk/transaction"
)

// DryRunSubmitter never broadcasts. It logs the raw transaction and reports
// the transaction's computed hash as if the broadcast had succeeded, so
// non-production deployments exercise the full disbursement path.
type DryRunSubmitter struct {
	logger *slog.Logger
}

func NewDryRunSubmitter(logger *slog.Logger) *DryRunSubmitter {
	return &DryRunSubmitter{
		logger: logger.With(slog.String("submitter", "dry-run")),
	}
}

func (s *DryRunSubmitter) SubmitTransaction(_ context.Context, tx *sdkTx.Transaction) (string, error) {
	txID := tx.TxID().String()

	s.logger.Info("dry run enabled, not broadcasting transaction",
		slog.String("txid", txID),
		slog.String("rawTx", tx.String()),
	)

	return txID, nil
}
