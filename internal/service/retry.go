package service

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/minutes-tracker/internal/repo"
)

const DefaultRetryMaxElapsed = 2 * time.Second

// TxRunner runs store transactions, re-running the whole transaction when
// the store reports a transient failure (serialization, deadlock, busy).
type TxRunner struct {
	store      repo.Store
	maxElapsed time.Duration
	logger     *zap.Logger
}

func NewTxRunner(store repo.Store, maxElapsed time.Duration, logger *zap.Logger) *TxRunner {
	if maxElapsed <= 0 {
		maxElapsed = DefaultRetryMaxElapsed
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TxRunner{store: store, maxElapsed: maxElapsed, logger: logger}
}

// Run executes fn in a transaction. fn may run more than once and must not
// leak state from a failed attempt.
func (r *TxRunner) Run(ctx context.Context, op string, fn func(q repo.Queries) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxElapsedTime = r.maxElapsed

	attempt := func() error {
		err := r.store.InTx(ctx, fn)
		if err != nil && !repo.IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		r.logger.Warn("retrying transaction",
			zap.String("op", op),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}
	return backoff.RetryNotify(attempt, backoff.WithContext(b, ctx), notify)
}
