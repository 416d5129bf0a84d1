package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/optmon/option-data/internal/config"
	"github.com/optmon/option-data/internal/model"
)

// Status is the process-wide store health state.
type Status string

const (
	Healthy  Status = "healthy"
	Degraded Status = "degraded"
	Down     Status = "down"
)

// Pinger is the probe target, satisfied by *database.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// EntrySink receives diagnostic log entries on state transitions,
// satisfied by *oplog.Recorder.
type EntrySink interface {
	Record(entry model.SystemLogEntry)
}

// Stats is a snapshot of probe accounting.
type Stats struct {
	Status            Status
	Checks            int64
	Successes         int64
	Failures          int64
	ConsecutiveFails  int
	LastCheck         time.Time
	LastFailure       time.Time
	LastFailureReason string
}

// Monitor probes the pool on a fixed interval and exposes the current
// status to concurrent readers. The zero status before the first probe
// is Healthy so startup writes are not spuriously queued.
type Monitor struct {
	cfg    config.HealthConfig
	pinger Pinger
	sink   EntrySink
	logger *slog.Logger

	mu    sync.RWMutex
	stats Stats

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMonitor creates a health monitor. sink may be nil.
func NewMonitor(cfg config.HealthConfig, pinger Pinger, sink EntrySink, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		cfg:    cfg,
		pinger: pinger,
		sink:   sink,
		logger: logger,
		stats:  Stats{Status: Healthy},
	}
}

// Start begins the probe loop.
func (m *Monitor) Start(ctx context.Context) {
	m.ctx, m.cancel = context.WithCancel(ctx)

	m.wg.Add(1)
	go m.probeLoop()

	m.logger.Info("health monitor started",
		"probe_interval", m.cfg.ProbeInterval,
		"down_threshold", m.cfg.DownThreshold,
	)
}

// Stop halts the probe loop.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	m.logger.Info("health monitor stopped")
}

// CurrentStatus returns the current status without blocking on a probe.
func (m *Monitor) CurrentStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats.Status
}

// IsHealthy reports whether writes should go straight to the store.
// Degraded still attempts writes; only Down diverts to the replay queue.
func (m *Monitor) IsHealthy() bool {
	return m.CurrentStatus() != Down
}

// Stats returns a snapshot of probe accounting.
func (m *Monitor) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// CheckNow runs one probe immediately and returns whether it succeeded.
func (m *Monitor) CheckNow(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
	defer cancel()

	start := time.Now()
	err := m.pinger.Ping(probeCtx)
	m.apply(err, time.Since(start))
	return err == nil
}

func (m *Monitor) probeLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.CheckNow(m.ctx)
		}
	}
}

// apply folds one probe result into the status, with hysteresis: the
// transition to Down requires DownThreshold consecutive failures, the
// transition back to Healthy requires one success.
func (m *Monitor) apply(err error, duration time.Duration) {
	m.mu.Lock()

	prev := m.stats.Status
	m.stats.Checks++
	m.stats.LastCheck = time.Now()

	if err == nil {
		m.stats.Successes++
		m.stats.ConsecutiveFails = 0
		m.stats.Status = Healthy
	} else {
		m.stats.Failures++
		m.stats.ConsecutiveFails++
		m.stats.LastFailure = time.Now()
		m.stats.LastFailureReason = err.Error()
		if m.stats.ConsecutiveFails >= m.cfg.DownThreshold {
			m.stats.Status = Down
		} else {
			m.stats.Status = Degraded
		}
	}

	next := m.stats.Status
	fails := m.stats.ConsecutiveFails
	m.mu.Unlock()

	if next == prev {
		return
	}

	level := "info"
	if next == Down {
		level = "error"
	} else if next == Degraded {
		level = "warn"
	}

	m.logger.Log(context.Background(), slogLevel(level), "health status changed",
		"from", string(prev),
		"to", string(next),
		"consecutive_failures", fails,
		"probe_duration", duration,
	)

	if m.sink != nil {
		detail := ""
		if err != nil {
			detail = err.Error()
		}
		m.sink.Record(model.SystemLogEntry{
			Level:       level,
			Module:      "health",
			Operation:   "probe",
			Message:     "status " + string(prev) + " -> " + string(next),
			ErrorDetail: detail,
			Duration:    duration,
			CreatedAt:   time.Now(),
		})
	}
}

func slogLevel(level string) slog.Level {
	switch level {
	case "error":
		return slog.LevelError
	case "warn":
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
