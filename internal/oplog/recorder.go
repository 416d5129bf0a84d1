package oplog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/optmon/option-data/internal/config"
	"github.com/optmon/option-data/internal/database"
	"github.com/optmon/option-data/internal/model"
)

// Recorder accumulates SystemLogEntry values and writes them to
// system_logs in batches.
type Recorder struct {
	cfg    config.OplogConfig
	db     *database.Pool
	logger *slog.Logger

	batchMu sync.Mutex
	batch   []model.SystemLogEntry

	flushTicker *time.Ticker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics Metrics
}

// Metrics counts recorder activity.
type Metrics struct {
	Recorded int64
	Inserted int64
	Dropped  int64
	Flushes  int64
}

// NewRecorder creates a system log recorder. db may be nil in tests;
// entries are then logged and dropped.
func NewRecorder(cfg config.OplogConfig, db *database.Pool, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		cfg:    cfg,
		db:     db,
		logger: logger,
		batch:  make([]model.SystemLogEntry, 0, cfg.BatchSize),
	}
}

// Start begins the periodic flush loop.
func (r *Recorder) Start(ctx context.Context) {
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.flushTicker = time.NewTicker(r.cfg.FlushInterval)

	r.wg.Add(1)
	go r.flushLoop()

	r.logger.Info("oplog recorder started",
		"batch_size", r.cfg.BatchSize,
		"flush_interval", r.cfg.FlushInterval,
	)
}

// Stop flushes remaining entries and halts the loop.
func (r *Recorder) Stop(ctx context.Context) {
	if r.cancel != nil {
		r.cancel()
	}
	if r.flushTicker != nil {
		r.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		r.logger.Warn("oplog recorder stop timed out")
	}

	r.flush()
	r.logger.Info("oplog recorder stopped")
}

// Record queues an entry for persistence. Never blocks on the store.
func (r *Recorder) Record(entry model.SystemLogEntry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	r.batchMu.Lock()
	r.metrics.Recorded++
	if len(r.batch) >= r.cfg.BufferSize {
		// Oldest-first drop keeps the buffer bounded while the store is
		// down; the entry already reached the process logger.
		r.batch = r.batch[1:]
		r.metrics.Dropped++
	}
	r.batch = append(r.batch, entry)
	shouldFlush := len(r.batch) >= r.cfg.BatchSize
	r.batchMu.Unlock()

	if shouldFlush {
		r.flush()
	}
}

// Stats returns current metrics.
func (r *Recorder) Stats() Metrics {
	r.batchMu.Lock()
	defer r.batchMu.Unlock()
	return r.metrics
}

func (r *Recorder) flushLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-r.flushTicker.C:
			r.flush()
		}
	}
}

func (r *Recorder) flush() {
	r.batchMu.Lock()
	if len(r.batch) == 0 {
		r.batchMu.Unlock()
		return
	}
	batch := r.batch
	r.batch = make([]model.SystemLogEntry, 0, r.cfg.BatchSize)
	r.batchMu.Unlock()

	if r.db == nil {
		r.noteDropped(len(batch))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.batchInsert(ctx, batch); err != nil {
		r.logger.Warn("system log flush failed", "error", err, "count", len(batch))
		r.noteDropped(len(batch))
		return
	}

	r.batchMu.Lock()
	r.metrics.Inserted += int64(len(batch))
	r.metrics.Flushes++
	r.batchMu.Unlock()
}

func (r *Recorder) noteDropped(n int) {
	r.batchMu.Lock()
	r.metrics.Dropped += int64(n)
	r.batchMu.Unlock()
}

func (r *Recorder) batchInsert(ctx context.Context, entries []model.SystemLogEntry) error {
	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(`
			INSERT INTO system_logs (log_level, module, operation, message, error_detail, duration_ms, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, e.Level, e.Module, e.Operation, e.Message, e.ErrorDetail, e.Duration.Milliseconds(), e.CreatedAt)
	}

	return r.db.WithConn(ctx, func(conn *pgxpool.Conn) error {
		results := conn.SendBatch(ctx, batch)
		defer results.Close()

		for range entries {
			if _, err := results.Exec(); err != nil {
				return err
			}
		}
		return nil
	})
}
