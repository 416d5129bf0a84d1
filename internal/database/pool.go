package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/optmon/option-data/internal/config"
	"github.com/optmon/option-data/internal/fault"
)

// Pool is a bounded connection pool with validated acquisition.
type Pool struct {
	inner          *pgxpool.Pool
	cfg            config.DBConfig
	acquireTimeout time.Duration
	logger         *slog.Logger

	// acquire is the raw acquisition call, normally inner.Acquire.
	// Tests substitute it to simulate a saturated pool.
	acquire func(ctx context.Context) (*pgxpool.Conn, error)
}

// PoolStats is a point-in-time snapshot of pool occupancy.
type PoolStats struct {
	TotalConns    int32
	IdleConns     int32
	AcquiredConns int32
	MaxConns      int32
	AcquireCount  int64
	EmptyAcquires int64 // Acquires that had to wait for a free connection
}

// Connect creates the connection pool and verifies reachability.
func Connect(ctx context.Context, cfg config.DBConfig, logger *slog.Logger) (*Pool, error) {
	if logger == nil {
		logger = slog.Default()
	}

	poolCfg, err := pgxpool.ParseConfig(BuildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinIdleConns = int32(cfg.MinIdleConns)
	poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	// Pin every session to the regional time zone so timestamptz values
	// round-trip with the contracted offset.
	tz := cfg.Timezone
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, "SET TIME ZONE '"+tz+"'")
		return err
	}

	inner, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := inner.Ping(ctx); err != nil {
		inner.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	p := &Pool{
		inner:          inner,
		cfg:            cfg,
		acquireTimeout: cfg.AcquireTimeout,
		logger:         logger,
	}
	p.acquire = inner.Acquire
	return p, nil
}

// Acquire returns a validated connection handle. It blocks up to the
// configured acquire timeout, then fails with fault.ErrPoolExhausted.
// A handle that fails its liveness probe is discarded and replaced;
// callers never observe a dead handle.
func (p *Pool) Acquire(ctx context.Context) (*pgxpool.Conn, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
	defer cancel()

	for {
		conn, err := p.acquire(acquireCtx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return nil, fault.PoolExhausted(
					fmt.Errorf("no connection within %s", p.acquireTimeout))
			}
			return nil, fault.Classify(fmt.Errorf("acquire connection: %w", err))
		}

		if err := conn.Ping(acquireCtx); err != nil {
			p.logger.Warn("discarding dead connection", "error", err)
			// Closing the underlying connection marks the resource for
			// destruction on release instead of returning it to the pool.
			_ = conn.Conn().Close(context.Background())
			conn.Release()
			continue
		}

		return conn, nil
	}
}

// WithConn runs fn with an acquired connection, releasing it on all exit
// paths including panics and fn errors.
func (p *Pool) WithConn(ctx context.Context, fn func(conn *pgxpool.Conn) error) error {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()
	return fn(conn)
}

// WithTx runs fn inside a transaction on an acquired connection. The
// transaction commits only if fn returns nil; any error rolls back.
func (p *Pool) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return p.WithConn(ctx, func(conn *pgxpool.Conn) error {
		tx, err := conn.Begin(ctx)
		if err != nil {
			return fault.Classify(fmt.Errorf("begin tx: %w", err))
		}
		defer tx.Rollback(ctx) // No-op after successful commit

		if err := fn(tx); err != nil {
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return fault.Classify(fmt.Errorf("commit tx: %w", err))
		}
		return nil
	})
}

// Ping verifies a round-trip through the pool.
func (p *Pool) Ping(ctx context.Context) error {
	return p.inner.Ping(ctx)
}

// Stats returns current pool occupancy.
func (p *Pool) Stats() PoolStats {
	s := p.inner.Stat()
	return PoolStats{
		TotalConns:    s.TotalConns(),
		IdleConns:     s.IdleConns(),
		AcquiredConns: s.AcquiredConns(),
		MaxConns:      s.MaxConns(),
		AcquireCount:  s.AcquireCount(),
		EmptyAcquires: s.EmptyAcquireCount(),
	}
}

// Info returns connection identity for the operational surface.
// The password is never included.
func (p *Pool) Info() map[string]any {
	s := p.Stats()
	return map[string]any{
		"host":           p.cfg.Host,
		"port":           p.cfg.Port,
		"database":       p.cfg.Name,
		"user":           p.cfg.User,
		"timezone":       p.cfg.Timezone,
		"total_conns":    s.TotalConns,
		"idle_conns":     s.IdleConns,
		"acquired_conns": s.AcquiredConns,
		"max_conns":      s.MaxConns,
	}
}

// Close closes the pool and all connections.
func (p *Pool) Close() {
	p.inner.Close()
}
