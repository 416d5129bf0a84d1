package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/optmon/option-data/internal/database"
	"github.com/optmon/option-data/internal/fault"
	"github.com/optmon/option-data/internal/model"
)

// Reader runs read-only queries against the recorded data.
type Reader struct {
	db *database.Pool
}

// NewReader creates a reader over db.
func NewReader(db *database.Pool) *Reader {
	return &Reader{db: db}
}

const recentTradesSQL = `
	SELECT id, trade_time, stock_code, stock_name, COALESCE(stock_price, 0),
	       option_code, option_type, COALESCE(strike_price, 0), COALESCE(expiry_date, '0001-01-01'::date),
	       volume, turnover, COALESCE(premium, 0), trade_direction,
	       COALESCE(bid_price, 0), COALESCE(ask_price, 0), COALESCE(last_price, 0), COALESCE(change_rate, 0),
	       COALESCE(implied_volatility, 0), COALESCE(delta_value, 0), COALESCE(gamma_value, 0),
	       COALESCE(theta_value, 0), COALESCE(vega_value, 0),
	       COALESCE(open_interest, 0), COALESCE(time_to_expiry, 0), moneyness, data_source
	FROM option_trades
	WHERE stock_code = $1 AND trade_time >= $2
	ORDER BY trade_time DESC
	LIMIT $3
`

// RecentTrades returns trades for stockCode within the trailing window,
// newest first, capped at limit rows.
func (r *Reader) RecentTrades(ctx context.Context, stockCode string, window time.Duration, limit int) ([]model.TradeEvent, error) {
	if !model.ValidStockCode(stockCode) {
		return nil, fault.Rejected(fmt.Errorf("invalid stock code %q", stockCode))
	}
	if limit <= 0 {
		limit = 100
	}

	var trades []model.TradeEvent
	err := r.db.WithConn(ctx, func(conn *pgxpool.Conn) error {
		cutoff := time.Now().Add(-window)
		rows, err := conn.Query(ctx, recentTradesSQL, stockCode, cutoff, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var ev model.TradeEvent
			var kind, moneyness string
			if err := rows.Scan(
				&ev.ID, &ev.TradeTime, &ev.StockCode, &ev.StockName, &ev.StockPrice,
				&ev.OptionCode, &kind, &ev.Strike, &ev.Expiry,
				&ev.Volume, &ev.Turnover, &ev.Premium, &ev.Direction,
				&ev.BidPrice, &ev.AskPrice, &ev.LastPrice, &ev.ChangeRate,
				&ev.ImpliedVolatility, &ev.Delta, &ev.Gamma, &ev.Theta, &ev.Vega,
				&ev.OpenInterest, &ev.TimeToExpiry, &moneyness, &ev.DataSource,
			); err != nil {
				return err
			}
			ev.OptionKind = model.OptionKind(kind)
			ev.Moneyness = model.Moneyness(moneyness)
			if ev.Expiry.Year() == 1 {
				ev.Expiry = time.Time{}
			}
			trades = append(trades, ev)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return trades, nil
}

const dailySummariesSQL = `
	SELECT summary_date, stock_code, stock_name,
	       total_trades, total_volume, total_turnover,
	       call_trades, put_trades, call_volume, put_volume,
	       call_turnover, put_turnover,
	       avg_premium, max_single_trade,
	       active_options_count, unique_expiry_dates
	FROM daily_summary
	WHERE summary_date = $1
	ORDER BY total_turnover DESC
`

// DailySummaries returns all per-stock summaries for the given date,
// highest turnover first.
func (r *Reader) DailySummaries(ctx context.Context, date time.Time) ([]model.DailySummary, error) {
	var summaries []model.DailySummary
	err := r.db.WithConn(ctx, func(conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, dailySummariesSQL, date)
		if err != nil {
			return err
		}
		defer rows.Close()

		var err2 error
		summaries, err2 = scanSummaries(rows)
		return err2
	})
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

const summarySQL = `
	SELECT summary_date, stock_code, stock_name,
	       total_trades, total_volume, total_turnover,
	       call_trades, put_trades, call_volume, put_volume,
	       call_turnover, put_turnover,
	       avg_premium, max_single_trade,
	       active_options_count, unique_expiry_dates
	FROM daily_summary
	WHERE summary_date = $1 AND stock_code = $2
`

// DailySummary returns the summary row for (date, stockCode), or nil if
// no trades were recorded for that key.
func (r *Reader) DailySummary(ctx context.Context, date time.Time, stockCode string) (*model.DailySummary, error) {
	if !model.ValidStockCode(stockCode) {
		return nil, fault.Rejected(fmt.Errorf("invalid stock code %q", stockCode))
	}

	var summary *model.DailySummary
	err := r.db.WithConn(ctx, func(conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, summarySQL, date, stockCode)
		if err != nil {
			return err
		}
		defer rows.Close()

		found, err := scanSummaries(rows)
		if err != nil {
			return err
		}
		if len(found) > 0 {
			summary = &found[0]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func scanSummaries(rows pgx.Rows) ([]model.DailySummary, error) {
	var out []model.DailySummary
	for rows.Next() {
		var s model.DailySummary
		if err := rows.Scan(
			&s.SummaryDate, &s.StockCode, &s.StockName,
			&s.TotalTrades, &s.TotalVolume, &s.TotalTurnover,
			&s.CallTrades, &s.PutTrades, &s.CallVolume, &s.PutVolume,
			&s.CallTurnover, &s.PutTurnover,
			&s.AvgPremium, &s.MaxSingleTrade,
			&s.ActiveOptions, &s.UniqueExpiryDates,
		); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
