package delivery

import (
	"errors"
	"testing"
	"time"

	"github.com/optmon/option-data/internal/fault"
	"github.com/optmon/option-data/internal/model"
)

func TestBeginAttempt_FirstAttempt(t *testing.T) {
	count, err := beginAttempt(nil, 3)
	if err != nil {
		t.Fatalf("beginAttempt(nil) error = %v", err)
	}
	if count != 0 {
		t.Errorf("retry count = %d, want 0", count)
	}
}

func TestBeginAttempt_IncrementsRetryCount(t *testing.T) {
	prev := &model.DeliveryAttempt{
		EventID:    42,
		Channel:    model.ChannelChat,
		Status:     model.AttemptFailed,
		RetryCount: 1,
	}
	count, err := beginAttempt(prev, 3)
	if err != nil {
		t.Fatalf("beginAttempt() error = %v", err)
	}
	if count != 2 {
		t.Errorf("retry count = %d, want 2", count)
	}
}

func TestBeginAttempt_SuccessIsTerminal(t *testing.T) {
	prev := &model.DeliveryAttempt{Status: model.AttemptSuccess}
	_, err := beginAttempt(prev, 3)
	if !errors.Is(err, ErrAlreadyDelivered) {
		t.Errorf("beginAttempt() error = %v, want ErrAlreadyDelivered", err)
	}
}

func TestBeginAttempt_CeilingExhaustsChain(t *testing.T) {
	maxRetries := 3

	// Walk the chain through its full lifetime: first attempt plus
	// maxRetries retries are allowed, the next attempt is refused.
	prev := (*model.DeliveryAttempt)(nil)
	for i := 0; i <= maxRetries; i++ {
		count, err := beginAttempt(prev, maxRetries)
		if err != nil {
			t.Fatalf("attempt %d: error = %v", i+1, err)
		}
		if count != i {
			t.Fatalf("attempt %d: retry count = %d, want %d", i+1, count, i)
		}
		prev = &model.DeliveryAttempt{
			EventID:    7,
			Channel:    model.ChannelEmail,
			Status:     model.AttemptFailed,
			RetryCount: count,
		}
	}

	_, err := beginAttempt(prev, maxRetries)
	if !errors.Is(err, fault.ErrRetryExhausted) {
		t.Errorf("attempt %d: error = %v, want ErrRetryExhausted", maxRetries+2, err)
	}
}

func TestBeginAttempt_PendingAtCeilingIsExhausted(t *testing.T) {
	// A chain stuck pending (outcome never reported) still counts its
	// attempts against the ceiling.
	prev := &model.DeliveryAttempt{Status: model.AttemptPending, RetryCount: 3}
	_, err := beginAttempt(prev, 3)
	if !errors.Is(err, fault.ErrRetryExhausted) {
		t.Errorf("beginAttempt() error = %v, want ErrRetryExhausted", err)
	}
}

func TestApplyOutcome_Success(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	a := &model.DeliveryAttempt{
		Status:      model.AttemptPending,
		ErrorDetail: "previous timeout",
	}
	if err := applyOutcome(a, true, "ignored", now); err != nil {
		t.Fatalf("applyOutcome() error = %v", err)
	}

	if a.Status != model.AttemptSuccess {
		t.Errorf("Status = %q, want success", a.Status)
	}
	if a.ErrorDetail != "" {
		t.Errorf("ErrorDetail = %q, want cleared", a.ErrorDetail)
	}
	if !a.AttemptTime.Equal(now) {
		t.Errorf("AttemptTime = %v, want %v", a.AttemptTime, now)
	}
}

func TestApplyOutcome_Failure(t *testing.T) {
	a := &model.DeliveryAttempt{Status: model.AttemptPending}
	if err := applyOutcome(a, false, "smtp connect refused", time.Now()); err != nil {
		t.Fatalf("applyOutcome() error = %v", err)
	}

	if a.Status != model.AttemptFailed {
		t.Errorf("Status = %q, want failed", a.Status)
	}
	if a.ErrorDetail != "smtp connect refused" {
		t.Errorf("ErrorDetail = %q", a.ErrorDetail)
	}
}

func TestApplyOutcome_DeliveredChainImmutable(t *testing.T) {
	a := &model.DeliveryAttempt{Status: model.AttemptSuccess}
	err := applyOutcome(a, false, "late failure callback", time.Now())
	if !errors.Is(err, ErrAlreadyDelivered) {
		t.Fatalf("applyOutcome() error = %v, want ErrAlreadyDelivered", err)
	}
	if a.Status != model.AttemptSuccess {
		t.Errorf("Status = %q, success record was rewritten", a.Status)
	}
}

func TestApplyOutcome_SettledFailureImmutable(t *testing.T) {
	// A failed record at the retry ceiling is terminal; a duplicate or
	// late success callback must not resurrect it.
	a := &model.DeliveryAttempt{
		Status:      model.AttemptFailed,
		RetryCount:  3,
		ErrorDetail: "smtp timeout",
	}
	err := applyOutcome(a, true, "", time.Now())
	if !errors.Is(err, ErrAttemptSettled) {
		t.Fatalf("applyOutcome() error = %v, want ErrAttemptSettled", err)
	}
	if a.Status != model.AttemptFailed {
		t.Errorf("Status = %q, failed record was flipped", a.Status)
	}
	if a.ErrorDetail != "smtp timeout" {
		t.Errorf("ErrorDetail = %q, want preserved", a.ErrorDetail)
	}
}
