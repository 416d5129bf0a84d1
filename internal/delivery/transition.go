package delivery

import (
	"errors"
	"fmt"
	"time"

	"github.com/optmon/option-data/internal/fault"
	"github.com/optmon/option-data/internal/model"
)

// ErrAlreadyDelivered reports an attempt against a chain that already
// succeeded. It is terminal success, not a failure.
var ErrAlreadyDelivered = errors.New("delivery already succeeded")

// ErrAttemptSettled reports an outcome against an attempt that is not
// pending. Settled records never change; a failed attempt reopens only
// through a new recorded attempt.
var ErrAttemptSettled = errors.New("attempt outcome already recorded")

// beginAttempt validates that a new attempt may start given the prior
// state of the (event, channel) chain. prev is nil for the first attempt.
// On success the returned retry count is the value the attempt should
// carry: 0 for the first attempt, prev.RetryCount+1 afterwards.
//
// maxRetries bounds retries, not total attempts: a chain allows the
// first attempt plus maxRetries retries, so maxRetries+1 sends in all.
// Once the chain's retry count reaches maxRetries, the next attempt is
// refused with fault.ErrRetryExhausted.
func beginAttempt(prev *model.DeliveryAttempt, maxRetries int) (retryCount int, err error) {
	if prev == nil {
		return 0, nil
	}
	switch prev.Status {
	case model.AttemptSuccess:
		return 0, ErrAlreadyDelivered
	case model.AttemptPending, model.AttemptFailed:
		if prev.RetryCount >= maxRetries {
			return 0, fault.RetryExhausted(fmt.Errorf(
				"event %d channel %s: %d retries used", prev.EventID, prev.Channel, prev.RetryCount))
		}
		return prev.RetryCount + 1, nil
	default:
		return 0, fmt.Errorf("unknown attempt status %q", prev.Status)
	}
}

// applyOutcome folds a send result into a pending attempt record.
// Outcomes apply only while the attempt is pending: success and failed
// are settled states and a duplicate or late callback cannot rewrite
// them. Success is terminal; failure keeps the chain open through
// beginAttempt, and a failed record at the ceiling simply stays failed.
func applyOutcome(a *model.DeliveryAttempt, delivered bool, detail string, now time.Time) error {
	switch a.Status {
	case model.AttemptSuccess:
		return ErrAlreadyDelivered
	case model.AttemptFailed:
		return ErrAttemptSettled
	case model.AttemptPending:
	default:
		return fmt.Errorf("unknown attempt status %q", a.Status)
	}

	a.AttemptTime = now
	if delivered {
		a.Status = model.AttemptSuccess
		a.ErrorDetail = ""
		return nil
	}
	a.Status = model.AttemptFailed
	a.ErrorDetail = detail
	return nil
}
