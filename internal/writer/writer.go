package writer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/optmon/option-data/internal/aggregate"
	"github.com/optmon/option-data/internal/config"
	"github.com/optmon/option-data/internal/database"
	"github.com/optmon/option-data/internal/fault"
	"github.com/optmon/option-data/internal/model"
)

// HealthGate reports whether the store should be written to directly,
// satisfied by *health.Monitor.
type HealthGate interface {
	IsHealthy() bool
}

// EntrySink receives diagnostic log entries, satisfied by *oplog.Recorder.
type EntrySink interface {
	Record(entry model.SystemLogEntry)
}

// pendingWrite is a queued record awaiting replay.
type pendingWrite struct {
	trade *model.TradeEvent
	price *model.PriceSnapshot
}

// Metrics counts writer activity.
type Metrics struct {
	Trades     int64
	Prices     int64
	Duplicates int64 // Price snapshots degraded to no-op by the dedup key
	Queued     int64
	Replayed   int64
	Dropped    int64 // Queue evictions under sustained outage
	Retries    int64
	Rejected   int64
	Failures   int64 // Terminal failures after retry exhaustion
}

// Writer owns creation of TradeEvent and PriceSnapshot rows.
type Writer struct {
	cfg    config.WriterConfig
	db     *database.Pool
	agg    *aggregate.Aggregator
	gate   HealthGate
	sink   EntrySink
	logger *slog.Logger
	clock  backoff.Clock // Injectable for deterministic retry tests

	queue *ReplayQueue[pendingWrite]

	metricsMu sync.Mutex
	metrics   Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures optional writer behavior.
type Option func(*Writer)

// WithClock overrides the clock driving retry backoff waits. The zero
// value uses the wall clock.
func WithClock(clock backoff.Clock) Option {
	return func(w *Writer) { w.clock = clock }
}

// New creates a record writer. sink may be nil.
func New(cfg config.WriterConfig, db *database.Pool, agg *aggregate.Aggregator, gate HealthGate, sink EntrySink, logger *slog.Logger, opts ...Option) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Writer{
		cfg:    cfg,
		db:     db,
		agg:    agg,
		gate:   gate,
		sink:   sink,
		logger: logger,
		queue:  NewReplayQueue[pendingWrite](cfg.QueueCapacity),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins the replay flush loop.
func (w *Writer) Start(ctx context.Context) {
	w.ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("writer started",
		"queue_capacity", w.cfg.QueueCapacity,
		"on_unhealthy", string(w.cfg.OnUnhealthy),
		"max_retries", w.cfg.MaxRetries,
	)
}

// Stop halts the flush loop and drains the replay queue within the
// grace period carried by ctx. Entries that cannot be replayed in time
// are counted as dropped and logged.
func (w *Writer) Stop(ctx context.Context) {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.queue.Close()

	flushed, err := w.drain(ctx)
	remaining := w.queue.Len()
	if remaining > 0 || err != nil {
		w.logger.Warn("writer stopped with unreplayed entries",
			"flushed", flushed, "remaining", remaining, "error", err)
		return
	}
	w.logger.Info("writer stopped", "flushed", flushed)
}

// WriteTrade persists a trade event. On success ev.ID carries the
// assigned surrogate identity. The insert and the daily aggregate update
// share one transaction.
func (w *Writer) WriteTrade(ctx context.Context, ev *model.TradeEvent) error {
	start := time.Now()

	if err := ev.Validate(); err != nil {
		return w.reject(ctx, "write_trade", start, err)
	}

	if !w.gate.IsHealthy() {
		return w.divert(pendingWrite{trade: ev}, "write_trade")
	}

	err := w.withRetry(ctx, "write_trade", func(ctx context.Context) error {
		return w.insertTradeTx(ctx, ev)
	})
	if err != nil {
		return w.fail(ctx, "write_trade", start, err)
	}

	w.count(func(m *Metrics) { m.Trades++ })
	return nil
}

// WritePrice persists a price snapshot. A duplicate (stock code, record
// time) pair degrades to a no-op success.
func (w *Writer) WritePrice(ctx context.Context, snap *model.PriceSnapshot) error {
	start := time.Now()

	if err := snap.Validate(); err != nil {
		return w.reject(ctx, "write_price", start, err)
	}

	if !w.gate.IsHealthy() {
		return w.divert(pendingWrite{price: snap}, "write_price")
	}

	var duplicate bool
	err := w.withRetry(ctx, "write_price", func(ctx context.Context) error {
		var err error
		duplicate, err = w.insertPrice(ctx, snap)
		return err
	})
	if err != nil {
		return w.fail(ctx, "write_price", start, err)
	}

	w.count(func(m *Metrics) {
		m.Prices++
		if duplicate {
			m.Duplicates++
		}
	})
	return nil
}

// UpsertStock creates or refreshes stock reference data.
func (w *Writer) UpsertStock(ctx context.Context, s *model.StockInfo) error {
	start := time.Now()

	if err := s.Validate(); err != nil {
		return w.reject(ctx, "upsert_stock", start, err)
	}

	err := w.withRetry(ctx, "upsert_stock", func(ctx context.Context) error {
		return w.db.WithConn(ctx, func(conn *pgxpool.Conn) error {
			_, err := conn.Exec(ctx, `
				INSERT INTO stocks (code, name, market, sector)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (code) DO UPDATE SET
					name = EXCLUDED.name,
					market = EXCLUDED.market,
					sector = EXCLUDED.sector,
					updated_at = now()
			`, s.Code, s.Name, s.Market, s.Sector)
			return err
		})
	})
	if err != nil {
		return w.fail(ctx, "upsert_stock", start, err)
	}
	return nil
}

// FlushReplayQueue synchronously replays queued writes. Exposed as an
// operational hook; also invoked by the periodic flush loop.
func (w *Writer) FlushReplayQueue(ctx context.Context) (int, error) {
	return w.drain(ctx)
}

// QueueStats returns replay queue statistics.
func (w *Writer) QueueStats() QueueStats {
	return w.queue.Stats()
}

// Stats returns current writer metrics.
func (w *Writer) Stats() Metrics {
	w.metricsMu.Lock()
	defer w.metricsMu.Unlock()
	return w.metrics
}

const insertTradeSQL = `
	INSERT INTO option_trades (
		trade_time, stock_code, stock_name, stock_price,
		option_code, option_type, strike_price, expiry_date,
		volume, turnover, premium, trade_direction,
		bid_price, ask_price, last_price, change_rate,
		implied_volatility, delta_value, gamma_value, theta_value, vega_value,
		open_interest, time_to_expiry, moneyness, data_source
	) VALUES (
		$1, $2, $3, $4,
		$5, $6, $7, $8,
		$9, $10, $11, $12,
		$13, $14, $15, $16,
		$17, $18, $19, $20, $21,
		$22, $23, $24, $25
	)
	RETURNING id
`

// insertTradeTx writes the fact and applies the aggregate in one
// transaction, so the summary invariant never observes a partial state.
func (w *Writer) insertTradeTx(ctx context.Context, ev *model.TradeEvent) error {
	writeCtx, cancel := context.WithTimeout(ctx, w.cfg.WriteTimeout)
	defer cancel()

	return w.db.WithTx(writeCtx, func(tx pgx.Tx) error {
		var expiry any
		if !ev.Expiry.IsZero() {
			expiry = ev.Expiry
		}

		err := tx.QueryRow(writeCtx, insertTradeSQL,
			ev.TradeTime, ev.StockCode, ev.StockName, ev.StockPrice,
			ev.OptionCode, string(ev.OptionKind), ev.Strike, expiry,
			ev.Volume, ev.Turnover, ev.Premium, ev.Direction,
			ev.BidPrice, ev.AskPrice, ev.LastPrice, ev.ChangeRate,
			ev.ImpliedVolatility, ev.Delta, ev.Gamma, ev.Theta, ev.Vega,
			ev.OpenInterest, ev.TimeToExpiry, string(ev.Moneyness), ev.DataSource,
		).Scan(&ev.ID)
		if err != nil {
			return fmt.Errorf("insert trade: %w", err)
		}

		if err := w.agg.Apply(writeCtx, tx, ev); err != nil {
			return err
		}
		return nil
	})
}

const insertPriceSQL = `
	INSERT INTO stock_prices_history (
		stock_code, stock_name, price, change_amount, change_rate,
		volume, turnover, high_price, low_price, open_price,
		prev_close, market_cap, pe_ratio, record_time, data_source
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9, $10,
		$11, $12, $13, $14, $15
	)
	ON CONFLICT ON CONSTRAINT uq_stock_prices_code_time DO NOTHING
`

func (w *Writer) insertPrice(ctx context.Context, snap *model.PriceSnapshot) (duplicate bool, err error) {
	writeCtx, cancel := context.WithTimeout(ctx, w.cfg.WriteTimeout)
	defer cancel()

	err = w.db.WithConn(writeCtx, func(conn *pgxpool.Conn) error {
		ct, err := conn.Exec(writeCtx, insertPriceSQL,
			snap.StockCode, snap.StockName, snap.Price, snap.ChangeAmount, snap.ChangeRate,
			snap.Volume, snap.Turnover, snap.HighPrice, snap.LowPrice, snap.OpenPrice,
			snap.PrevClose, snap.MarketCap, snap.PERatio, snap.RecordTime, snap.DataSource,
		)
		if err != nil {
			return fmt.Errorf("insert price snapshot: %w", err)
		}
		duplicate = ct.RowsAffected() == 0
		return nil
	})
	return duplicate, err
}

// divert routes a write away from the down store: queue it (buffer mode)
// or fail fast with a transient error.
func (w *Writer) divert(item pendingWrite, op string) error {
	if w.cfg.OnUnhealthy == config.ModeFailFast {
		return fault.Transient(errors.New("store unhealthy"))
	}

	evicted, dropped, ok := w.queue.Push(item)
	if !ok {
		return fault.Transient(errors.New("replay queue closed"))
	}

	w.count(func(m *Metrics) { m.Queued++ })
	if dropped {
		w.count(func(m *Metrics) { m.Dropped++ })
		w.logger.Warn("replay queue full, dropped oldest entry",
			"operation", op, "capacity", w.queue.Cap())
		w.record("warn", op, "dropped oldest queued record", describePending(evicted), 0)
	}
	return nil
}

func (w *Writer) flushLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			if w.gate.IsHealthy() && w.queue.Len() > 0 {
				if _, err := w.drain(w.ctx); err != nil {
					w.logger.Warn("replay flush interrupted", "error", err)
				}
			}
		}
	}
}

// drain replays queued writes in FIFO order until the queue is empty, the
// context expires, or a write fails. A failed entry keeps its position.
func (w *Writer) drain(ctx context.Context) (int, error) {
	flushed := 0
	for {
		if err := ctx.Err(); err != nil {
			return flushed, err
		}

		item, ok := w.queue.TryPop()
		if !ok {
			return flushed, nil
		}

		var err error
		switch {
		case item.trade != nil:
			err = w.withRetry(ctx, "replay_trade", func(ctx context.Context) error {
				return w.insertTradeTx(ctx, item.trade)
			})
		case item.price != nil:
			err = w.withRetry(ctx, "replay_price", func(ctx context.Context) error {
				_, err := w.insertPrice(ctx, item.price)
				return err
			})
		}
		if err != nil {
			w.queue.PushFront(item)
			return flushed, err
		}

		flushed++
		w.count(func(m *Metrics) { m.Replayed++ })
	}
}

func (w *Writer) withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	return retryTransient(ctx, w.cfg, w.clock, func(err error) {
		w.count(func(m *Metrics) { m.Retries++ })
		w.logger.Warn("transient write failure, retrying", "operation", op, "error", err)
	}, fn)
}

func (w *Writer) reject(ctx context.Context, op string, start time.Time, err error) error {
	w.count(func(m *Metrics) { m.Rejected++ })
	w.record("warn", op, "input rejected", err.Error(), time.Since(start))
	return fault.Rejected(err)
}

func (w *Writer) fail(ctx context.Context, op string, start time.Time, err error) error {
	w.count(func(m *Metrics) { m.Failures++ })
	w.logger.Error("write failed", "operation", op, "error", err, "duration", time.Since(start))
	w.record("error", op, "write failed", err.Error(), time.Since(start))
	return err
}

func (w *Writer) record(level, op, msg, detail string, duration time.Duration) {
	if w.sink == nil {
		return
	}
	w.sink.Record(model.SystemLogEntry{
		Level:       level,
		Module:      "writer",
		Operation:   op,
		Message:     msg,
		ErrorDetail: detail,
		Duration:    duration,
		CreatedAt:   time.Now(),
	})
}

func (w *Writer) count(fn func(*Metrics)) {
	w.metricsMu.Lock()
	fn(&w.metrics)
	w.metricsMu.Unlock()
}

func describePending(p pendingWrite) string {
	switch {
	case p.trade != nil:
		return "trade " + p.trade.OptionCode + " @ " + p.trade.TradeTime.Format(time.RFC3339)
	case p.price != nil:
		return "price " + p.price.StockCode + " @ " + p.price.RecordTime.Format(time.RFC3339)
	}
	return "empty"
}
