package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/optmon/option-data/internal/config"
	"github.com/optmon/option-data/internal/database"
	"github.com/optmon/option-data/internal/fault"
	"github.com/optmon/option-data/internal/model"
)

// Metrics counts tracker activity.
type Metrics struct {
	Attempts  int64
	Delivered int64
	Failed    int64
	Exhausted int64
}

// Tracker persists delivery attempt chains in push_records.
type Tracker struct {
	cfg    config.DeliveryConfig
	db     *database.Pool
	logger *slog.Logger

	metricsMu sync.Mutex
	metrics   Metrics
}

// New creates a delivery tracker.
func New(cfg config.DeliveryConfig, db *database.Pool, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{cfg: cfg, db: db, logger: logger}
}

// RecordAttempt registers a new attempt for (eventID, channel) and returns
// the pending record. The first attempt creates the chain; later attempts
// increment the retry count. Returns ErrAlreadyDelivered if the chain
// already succeeded and fault.ErrRetryExhausted once the ceiling is hit.
func (t *Tracker) RecordAttempt(ctx context.Context, eventID int64, channel model.Channel, content string) (*model.DeliveryAttempt, error) {
	if eventID <= 0 {
		return nil, fault.Rejected(fmt.Errorf("invalid event id %d", eventID))
	}
	if !model.ValidChannel(channel) {
		return nil, fault.Rejected(fmt.Errorf("unknown channel %q", channel))
	}

	attempt := &model.DeliveryAttempt{
		EventID:     eventID,
		Channel:     channel,
		Status:      model.AttemptPending,
		Content:     content,
		AttemptTime: time.Now(),
	}

	err := t.db.WithTx(ctx, func(tx pgx.Tx) error {
		prev, err := lockChain(ctx, tx, eventID, channel)
		if err != nil {
			return err
		}

		retryCount, err := beginAttempt(prev, t.cfg.MaxRetries)
		if err != nil {
			return err
		}
		attempt.RetryCount = retryCount

		if prev == nil {
			attempt.ID = uuid.New()
			_, err := tx.Exec(ctx, `
				INSERT INTO push_records (id, option_id, push_type, push_status, push_content, retry_count, push_time)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, attempt.ID, eventID, string(channel), string(model.AttemptPending), content, attempt.RetryCount, attempt.AttemptTime)
			return err
		}

		attempt.ID = prev.ID
		_, err = tx.Exec(ctx, `
			UPDATE push_records
			SET push_status = $2, push_content = $3, retry_count = $4, error_message = '', push_time = $5
			WHERE id = $1
		`, attempt.ID, string(model.AttemptPending), content, attempt.RetryCount, attempt.AttemptTime)
		return err
	})
	if err != nil {
		if errors.Is(err, fault.ErrRetryExhausted) {
			t.count(func(m *Metrics) { m.Exhausted++ })
			t.logger.Warn("delivery retries exhausted",
				"event_id", eventID, "channel", string(channel), "max_retries", t.cfg.MaxRetries)
		}
		return nil, err
	}

	t.count(func(m *Metrics) { m.Attempts++ })
	return attempt, nil
}

// MarkOutcome records the result of a previously registered attempt.
// Only pending attempts accept an outcome: an already-delivered chain
// returns ErrAlreadyDelivered and a settled failure ErrAttemptSettled.
func (t *Tracker) MarkOutcome(ctx context.Context, id uuid.UUID, delivered bool, detail string) error {
	err := t.db.WithTx(ctx, func(tx pgx.Tx) error {
		var a model.DeliveryAttempt
		var status, channel string
		err := tx.QueryRow(ctx, `
			SELECT id, option_id, push_type, push_status, retry_count
			FROM push_records
			WHERE id = $1
			FOR UPDATE
		`, id).Scan(&a.ID, &a.EventID, &channel, &status, &a.RetryCount)
		if errors.Is(err, pgx.ErrNoRows) {
			return fault.Rejected(fmt.Errorf("no attempt with id %s", id))
		}
		if err != nil {
			return err
		}

		a.Status = model.AttemptStatus(status)
		if err := applyOutcome(&a, delivered, detail, time.Now()); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE push_records
			SET push_status = $2, error_message = $3, push_time = $4
			WHERE id = $1
		`, id, string(a.Status), a.ErrorDetail, a.AttemptTime)
		return err
	})
	if err != nil {
		return err
	}

	t.count(func(m *Metrics) {
		if delivered {
			m.Delivered++
		} else {
			m.Failed++
		}
	})
	return nil
}

// Attempt returns the current chain state for (eventID, channel), or
// nil if no attempt was ever recorded.
func (t *Tracker) Attempt(ctx context.Context, eventID int64, channel model.Channel) (*model.DeliveryAttempt, error) {
	var attempt *model.DeliveryAttempt
	err := t.db.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		attempt, err = queryChain(ctx, tx, eventID, channel, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	return attempt, nil
}

// Stats returns current tracker metrics.
func (t *Tracker) Stats() Metrics {
	t.metricsMu.Lock()
	defer t.metricsMu.Unlock()
	return t.metrics
}

// lockChain loads the chain row for update, serializing concurrent
// attempts on the same (event, channel) pair.
func lockChain(ctx context.Context, tx pgx.Tx, eventID int64, channel model.Channel) (*model.DeliveryAttempt, error) {
	return queryChain(ctx, tx, eventID, channel, " FOR UPDATE")
}

func queryChain(ctx context.Context, tx pgx.Tx, eventID int64, channel model.Channel, suffix string) (*model.DeliveryAttempt, error) {
	var a model.DeliveryAttempt
	var status, ch string
	err := tx.QueryRow(ctx, `
		SELECT id, option_id, push_type, push_status, push_content, error_message, retry_count, push_time
		FROM push_records
		WHERE option_id = $1 AND push_type = $2`+suffix,
		eventID, string(channel),
	).Scan(&a.ID, &a.EventID, &ch, &status, &a.Content, &a.ErrorDetail, &a.RetryCount, &a.AttemptTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.Channel = model.Channel(ch)
	a.Status = model.AttemptStatus(status)
	return &a, nil
}

func (t *Tracker) count(fn func(*Metrics)) {
	t.metricsMu.Lock()
	fn(&t.metrics)
	t.metricsMu.Unlock()
}
