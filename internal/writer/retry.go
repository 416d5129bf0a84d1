package writer

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/optmon/option-data/internal/config"
	"github.com/optmon/option-data/internal/fault"
)

// newBackoff builds the retry schedule from config. The clock is
// injectable so tests can drive the schedule deterministically.
func newBackoff(cfg config.WriterConfig, clock backoff.Clock) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.BackoffBase
	b.MaxInterval = cfg.BackoffMax
	b.MaxElapsedTime = 0 // Bounded by attempt count, not wall time
	if clock != nil {
		b.Clock = clock
	}
	b.Reset()
	return b
}

// retryTransient runs op, retrying transient failures with exponential
// backoff up to cfg.MaxRetries additional attempts. Rejected and fatal
// classifications abort immediately. The returned error carries its
// taxonomy tag.
func retryTransient(ctx context.Context, cfg config.WriterConfig, clock backoff.Clock, onRetry func(err error), op func(context.Context) error) error {
	bo := backoff.WithContext(
		backoff.WithMaxRetries(newBackoff(cfg, clock), uint64(cfg.MaxRetries)), ctx)

	return backoff.RetryNotify(func() error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		err = fault.Classify(err)
		if !fault.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, bo, func(err error, _ time.Duration) {
		if onRetry != nil {
			onRetry(err)
		}
	})
}
