package aggregate

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/optmon/option-data/internal/model"
)

// Fold is the reference in-memory fold over trade events for one
// (date, stock) key. The SQL upsert in Apply must agree with it for any
// event sequence; tests replay sequences through both.
type Fold struct {
	summary  model.DailySummary
	expiries map[string]struct{}
	options  map[string]struct{}
}

// NewFold starts an empty fold for the given key.
func NewFold(date time.Time, stockCode string) *Fold {
	return &Fold{
		summary: model.DailySummary{
			SummaryDate: date,
			StockCode:   stockCode,
		},
		expiries: make(map[string]struct{}),
		options:  make(map[string]struct{}),
	}
}

// Apply folds one event's contribution into the summary.
func (f *Fold) Apply(ev *model.TradeEvent) {
	s := &f.summary
	s.StockName = ev.StockName

	s.TotalTrades++
	s.TotalVolume += ev.Volume
	s.TotalTurnover = s.TotalTurnover.Add(ev.Turnover)

	if ev.OptionKind == model.Call {
		s.CallTrades++
		s.CallVolume += ev.Volume
		s.CallTurnover = s.CallTurnover.Add(ev.Turnover)
	} else {
		s.PutTrades++
		s.PutVolume += ev.Volume
		s.PutTurnover = s.PutTurnover.Add(ev.Turnover)
	}

	// Running weighted mean, guarded by the post-increment count.
	s.AvgPremium = s.AvgPremium.Add(
		ev.Premium.Sub(s.AvgPremium).Div(decimal.NewFromInt(s.TotalTrades)))

	if ev.Turnover.GreaterThan(s.MaxSingleTrade) {
		s.MaxSingleTrade = ev.Turnover
	}

	if _, seen := f.options[ev.OptionCode]; !seen {
		f.options[ev.OptionCode] = struct{}{}
		s.ActiveOptions++
	}
	if !ev.Expiry.IsZero() {
		key := ev.Expiry.Format("2006-01-02")
		if _, seen := f.expiries[key]; !seen {
			f.expiries[key] = struct{}{}
			s.UniqueExpiryDates++
		}
	}
}

// Summary returns the folded aggregate.
func (f *Fold) Summary() model.DailySummary {
	return f.summary
}
