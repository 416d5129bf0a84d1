package aggregate

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/optmon/option-data/internal/model"
)

// Aggregator applies trade event contributions to daily_summary.
// Summary rows are keyed by the trade's calendar date in the regional
// zone, derived here rather than by the driver, so an event carrying a
// foreign offset (e.g. UTC) lands in the same row whether it arrives
// incrementally or through replay.
type Aggregator struct {
	loc *time.Location
}

// New creates an aggregator keyed to loc, which must match the zone the
// pool pins on every session so Recompute's date grouping agrees.
func New(loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{loc: loc}
}

// summaryDay reduces an instant to its calendar date in the regional
// zone, as a YYYY-MM-DD string the date casts parse zone-independently.
func (a *Aggregator) summaryDay(t time.Time) string {
	return t.In(a.loc).Format("2006-01-02")
}

const seenInsertSQL = `
	INSERT INTO daily_summary_seen (summary_date, stock_code, kind, member)
	VALUES (($1)::date, $2, $3, $4)
	ON CONFLICT DO NOTHING
`

const summaryUpsertSQL = `
	INSERT INTO daily_summary (
		summary_date, stock_code, stock_name,
		total_trades, total_volume, total_turnover,
		call_trades, put_trades, call_volume, put_volume, call_turnover, put_turnover,
		avg_premium, max_single_trade,
		active_options_count, unique_expiry_dates
	) VALUES (
		($1)::date, $2, $3,
		1, $4, $5,
		$6, $7, $8, $9, $10, $11,
		$12, $5,
		$13, $14
	)
	ON CONFLICT (summary_date, stock_code) DO UPDATE SET
		stock_name           = EXCLUDED.stock_name,
		total_trades         = daily_summary.total_trades + 1,
		total_volume         = daily_summary.total_volume + EXCLUDED.total_volume,
		total_turnover       = daily_summary.total_turnover + EXCLUDED.total_turnover,
		call_trades          = daily_summary.call_trades + EXCLUDED.call_trades,
		put_trades           = daily_summary.put_trades + EXCLUDED.put_trades,
		call_volume          = daily_summary.call_volume + EXCLUDED.call_volume,
		put_volume           = daily_summary.put_volume + EXCLUDED.put_volume,
		call_turnover        = daily_summary.call_turnover + EXCLUDED.call_turnover,
		put_turnover         = daily_summary.put_turnover + EXCLUDED.put_turnover,
		avg_premium          = daily_summary.avg_premium
		                       + (EXCLUDED.avg_premium - daily_summary.avg_premium)
		                         / (daily_summary.total_trades + 1),
		max_single_trade     = GREATEST(daily_summary.max_single_trade, EXCLUDED.max_single_trade),
		active_options_count = daily_summary.active_options_count + EXCLUDED.active_options_count,
		unique_expiry_dates  = daily_summary.unique_expiry_dates + EXCLUDED.unique_expiry_dates,
		updated_at           = now()
`

// Apply folds one committed-to-be event into the summary row for
// (summaryDay(ev.TradeTime), ev.StockCode). Must run inside the same
// transaction as the fact insert.
func (a *Aggregator) Apply(ctx context.Context, tx pgx.Tx, ev *model.TradeEvent) error {
	day := a.summaryDay(ev.TradeTime)

	newOption, err := a.markSeen(ctx, tx, day, ev.StockCode, "option", ev.OptionCode)
	if err != nil {
		return fmt.Errorf("mark option seen: %w", err)
	}

	newExpiry := int64(0)
	if !ev.Expiry.IsZero() {
		newExpiry, err = a.markSeen(ctx, tx, day, ev.StockCode, "expiry",
			ev.Expiry.Format("2006-01-02"))
		if err != nil {
			return fmt.Errorf("mark expiry seen: %w", err)
		}
	}

	var callTrades, putTrades, callVolume, putVolume int64
	callTurnover, putTurnover := decimal.Zero, decimal.Zero
	if ev.OptionKind == model.Call {
		callTrades, callVolume, callTurnover = 1, ev.Volume, ev.Turnover
	} else {
		putTrades, putVolume, putTurnover = 1, ev.Volume, ev.Turnover
	}

	_, err = tx.Exec(ctx, summaryUpsertSQL,
		day, ev.StockCode, ev.StockName,
		ev.Volume, ev.Turnover,
		callTrades, putTrades, callVolume, putVolume, callTurnover, putTurnover,
		ev.Premium,
		newOption, newExpiry,
	)
	if err != nil {
		return fmt.Errorf("upsert daily summary: %w", err)
	}
	return nil
}

// markSeen records a distinct member and returns 1 if it was new.
func (a *Aggregator) markSeen(ctx context.Context, tx pgx.Tx, day, code, kind, member string) (int64, error) {
	ct, err := tx.Exec(ctx, seenInsertSQL, day, code, kind, member)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

const recomputeSQL = `
	SELECT
		COALESCE(MAX(stock_name), ''),
		COUNT(*),
		COALESCE(SUM(volume), 0),
		COALESCE(SUM(turnover), 0),
		COALESCE(SUM(CASE WHEN option_type = 'Call' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN option_type = 'Put' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN option_type = 'Call' THEN volume ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN option_type = 'Put' THEN volume ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN option_type = 'Call' THEN turnover ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN option_type = 'Put' THEN turnover ELSE 0 END), 0),
		COALESCE(AVG(premium), 0),
		COALESCE(MAX(turnover), 0),
		COUNT(DISTINCT option_code),
		COUNT(DISTINCT expiry_date)
	FROM option_trades
	WHERE trade_time::date = ($1)::date AND stock_code = $2
`

// Recompute derives the summary for (date, stockCode) by independent
// replay over the committed facts. Used for verification and repair; the
// incremental value must always equal it. The trade_time::date grouping
// happens in the session zone, which the pool pins to the same regional
// zone the incremental path keys by.
func (a *Aggregator) Recompute(ctx context.Context, q Querier, date time.Time, stockCode string) (model.DailySummary, error) {
	s := model.DailySummary{SummaryDate: date, StockCode: stockCode}
	err := q.QueryRow(ctx, recomputeSQL, date, stockCode).Scan(
		&s.StockName,
		&s.TotalTrades, &s.TotalVolume, &s.TotalTurnover,
		&s.CallTrades, &s.PutTrades,
		&s.CallVolume, &s.PutVolume,
		&s.CallTurnover, &s.PutTurnover,
		&s.AvgPremium, &s.MaxSingleTrade,
		&s.ActiveOptions, &s.UniqueExpiryDates,
	)
	if err != nil {
		return model.DailySummary{}, fmt.Errorf("recompute summary: %w", err)
	}
	return s, nil
}

// Querier is the read surface Recompute needs; satisfied by pgx.Tx,
// *pgxpool.Pool, and *pgxpool.Conn.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
