// Package metrics exposes recorder internals as Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/optmon/option-data/internal/database"
	"github.com/optmon/option-data/internal/delivery"
	"github.com/optmon/option-data/internal/health"
	"github.com/optmon/option-data/internal/writer"
)

// Registry bundles all recorder collectors behind one HTTP handler.
type Registry struct {
	reg *prometheus.Registry
}

// New builds a registry over live component state. All collectors read
// snapshots at scrape time; nothing is incremented inline.
func New(pool *database.Pool, monitor *health.Monitor, w *writer.Writer, tracker *delivery.Tracker) *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	register := func(c prometheus.Collector) { reg.MustRegister(c) }

	register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "recorder", Subsystem: "pool", Name: "total_conns",
		Help: "Connections currently open in the pool.",
	}, func() float64 { return float64(pool.Stats().TotalConns) }))
	register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "recorder", Subsystem: "pool", Name: "idle_conns",
		Help: "Idle connections available for acquisition.",
	}, func() float64 { return float64(pool.Stats().IdleConns) }))
	register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "recorder", Subsystem: "pool", Name: "acquired_conns",
		Help: "Connections currently checked out.",
	}, func() float64 { return float64(pool.Stats().AcquiredConns) }))
	register(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "recorder", Subsystem: "pool", Name: "empty_acquires_total",
		Help: "Acquires that had to wait for a free connection.",
	}, func() float64 { return float64(pool.Stats().EmptyAcquires) }))

	register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "recorder", Subsystem: "health", Name: "status",
		Help: "Store health: 0 healthy, 1 degraded, 2 down.",
	}, func() float64 {
		switch monitor.CurrentStatus() {
		case health.Healthy:
			return 0
		case health.Degraded:
			return 1
		default:
			return 2
		}
	}))
	register(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "recorder", Subsystem: "health", Name: "probe_failures_total",
		Help: "Failed health probes since start.",
	}, func() float64 { return float64(monitor.Stats().Failures) }))

	register(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "recorder", Subsystem: "writer", Name: "trades_total",
		Help: "Trade events committed.",
	}, func() float64 { return float64(w.Stats().Trades) }))
	register(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "recorder", Subsystem: "writer", Name: "prices_total",
		Help: "Price snapshots committed.",
	}, func() float64 { return float64(w.Stats().Prices) }))
	register(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "recorder", Subsystem: "writer", Name: "rejected_total",
		Help: "Writes rejected on validation.",
	}, func() float64 { return float64(w.Stats().Rejected) }))
	register(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "recorder", Subsystem: "writer", Name: "retries_total",
		Help: "Transient write retries.",
	}, func() float64 { return float64(w.Stats().Retries) }))
	register(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "recorder", Subsystem: "writer", Name: "queue_dropped_total",
		Help: "Replay queue entries evicted under sustained outage.",
	}, func() float64 { return float64(w.Stats().Dropped) }))
	register(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "recorder", Subsystem: "writer", Name: "replayed_total",
		Help: "Queued entries successfully replayed.",
	}, func() float64 { return float64(w.Stats().Replayed) }))
	register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "recorder", Subsystem: "writer", Name: "queue_depth",
		Help: "Entries currently in the replay queue.",
	}, func() float64 { return float64(w.QueueStats().Count) }))

	register(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "recorder", Subsystem: "delivery", Name: "attempts_total",
		Help: "Delivery attempts registered.",
	}, func() float64 { return float64(tracker.Stats().Attempts) }))
	register(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "recorder", Subsystem: "delivery", Name: "exhausted_total",
		Help: "Delivery chains refused at the retry ceiling.",
	}, func() float64 { return float64(tracker.Stats().Exhausted) }))

	return &Registry{reg: reg}
}

// Handler returns the scrape endpoint handler.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
