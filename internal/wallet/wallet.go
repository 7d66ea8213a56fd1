package wallet

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	balanceCacheKey        = "wallet-balance"
	DefaultBalanceCacheTTL = 5 * time.Minute
)

var ErrBroadcastFailed = errors.New("failed to broadcast transaction")

// Wallet owns the faucet's funds: it fetches unspent outputs, builds and
// broadcasts payout transactions and caches the spendable balance. The whole
// send path runs under one lock so concurrent payouts cannot select the same
// inputs.
type Wallet struct {
	logger    *slog.Logger
	address   string
	builder   *Builder
	lister    UnspentOutputLister
	submitter Submitter

	mu           sync.Mutex
	balanceCache *cache.Cache
	cacheTTL     time.Duration
}

func WithBalanceCacheTTL(ttl time.Duration) func(*Wallet) {
	return func(w *Wallet) {
		w.cacheTTL = ttl
	}
}

func New(logger *slog.Logger, address string, builder *Builder, lister UnspentOutputLister, submitter Submitter, opts ...func(*Wallet)) *Wallet {
	w := &Wallet{
		logger:    logger.With(slog.String("service", "wallet")),
		address:   address,
		builder:   builder,
		lister:    lister,
		submitter: submitter,
		cacheTTL:  DefaultBalanceCacheTTL,
	}

	for _, opt := range opts {
		opt(w)
	}

	w.balanceCache = cache.New(w.cacheTTL, w.cacheTTL)

	return w
}

// Send builds, signs and broadcasts a payout of amount satoshis to the
// receiving address. It returns the broadcast transaction id. The fee is
// taken out of amount, so the recipient receives slightly less.
func (w *Wallet) Send(ctx context.Context, receivingAddress string, amount uint64) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.logger.Info("sending payout",
		slog.Uint64("satoshis", amount),
		slog.String("address", receivingAddress),
	)

	utxos, err := w.lister.ListUnspent(ctx, w.address)
	if err != nil {
		return "", err
	}

	tx, err := w.builder.BuildPayout(receivingAddress, amount, utxos)
	if err != nil {
		return "", err
	}

	txID, err := w.submitter.SubmitTransaction(ctx, tx)
	if err != nil {
		return "", errors.Join(ErrBroadcastFailed, err)
	}

	w.logger.Info("broadcasted transaction", slog.String("txid", txID))

	w.balanceCache.Delete(balanceCacheKey)

	return txID, nil
}

// Balance returns the sum of all unspent output values at the faucet
// address. The result is cached; concurrent cache misses may each trigger a
// recompute, which is tolerated since the balance is advisory.
func (w *Wallet) Balance(ctx context.Context) (uint64, error) {
	value, found := w.balanceCache.Get(balanceCacheKey)
	if found {
		balance, ok := value.(uint64)
		if ok {
			return balance, nil
		}
	}

	utxos, err := w.lister.ListUnspent(ctx, w.address)
	if err != nil {
		return 0, err
	}

	var balance uint64
	for _, utxo := range utxos {
		balance += utxo.Satoshis
	}

	w.balanceCache.Set(balanceCacheKey, balance, w.cacheTTL)

	return balance, nil
}

// InvalidateBalance evicts the cached balance so the next Balance call
// recomputes it.
func (w *Wallet) InvalidateBalance() {
	w.balanceCache.Delete(balanceCacheKey)
}
