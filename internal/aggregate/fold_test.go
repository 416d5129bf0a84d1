package aggregate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/optmon/option-data/internal/model"
)

var hkt = time.FixedZone("HKT", 8*3600)

func trade(kind model.OptionKind, optionCode string, turnover int64, premium string, expiry time.Time) *model.TradeEvent {
	return &model.TradeEvent{
		TradeTime:  time.Date(2025, 8, 22, 10, 30, 0, 0, hkt),
		StockCode:  "HK.00700",
		StockName:  "Tencent",
		OptionCode: optionCode,
		OptionKind: kind,
		Volume:     10,
		Turnover:   decimal.NewFromInt(turnover),
		Premium:    decimal.RequireFromString(premium),
		Expiry:     expiry,
	}
}

func TestFold_MixedCallsAndPuts(t *testing.T) {
	date := time.Date(2025, 8, 22, 0, 0, 0, 0, hkt)
	expA := time.Date(2025, 8, 30, 0, 0, 0, 0, hkt)
	expB := time.Date(2025, 9, 27, 0, 0, 0, 0, hkt)

	f := NewFold(date, "HK.00700")
	f.Apply(trade(model.Call, "TCH250830C640000", 100, "5.0", expA))
	f.Apply(trade(model.Call, "TCH250830C660000", 200, "3.0", expA))
	f.Apply(trade(model.Call, "TCH250927C640000", 50, "7.0", expB))
	f.Apply(trade(model.Put, "TCH250830P600000", 300, "4.0", expA))
	f.Apply(trade(model.Put, "TCH250927P580000", 400, "6.0", expB))

	s := f.Summary()

	if s.TotalTrades != 5 {
		t.Errorf("TotalTrades = %d, want 5", s.TotalTrades)
	}
	if s.CallTrades != 3 {
		t.Errorf("CallTrades = %d, want 3", s.CallTrades)
	}
	if s.PutTrades != 2 {
		t.Errorf("PutTrades = %d, want 2", s.PutTrades)
	}
	if !s.TotalTurnover.Equal(decimal.NewFromInt(1050)) {
		t.Errorf("TotalTurnover = %s, want 1050", s.TotalTurnover)
	}
	if !s.MaxSingleTrade.Equal(decimal.NewFromInt(400)) {
		t.Errorf("MaxSingleTrade = %s, want 400", s.MaxSingleTrade)
	}
	if !s.CallTurnover.Equal(decimal.NewFromInt(350)) {
		t.Errorf("CallTurnover = %s, want 350", s.CallTurnover)
	}
	if !s.PutTurnover.Equal(decimal.NewFromInt(700)) {
		t.Errorf("PutTurnover = %s, want 700", s.PutTurnover)
	}
	if s.TotalVolume != 50 {
		t.Errorf("TotalVolume = %d, want 50", s.TotalVolume)
	}
	if s.ActiveOptions != 5 {
		t.Errorf("ActiveOptions = %d, want 5", s.ActiveOptions)
	}
	if s.UniqueExpiryDates != 2 {
		t.Errorf("UniqueExpiryDates = %d, want 2", s.UniqueExpiryDates)
	}

	// Mean of 5, 3, 7, 4, 6
	if !s.AvgPremium.Equal(decimal.NewFromInt(5)) {
		t.Errorf("AvgPremium = %s, want 5", s.AvgPremium)
	}
}

func TestFold_RunningMeanMatchesArithmeticMean(t *testing.T) {
	date := time.Date(2025, 8, 22, 0, 0, 0, 0, hkt)
	premiums := []string{"1.25", "2.50", "0.75", "9.00", "4.10", "3.33"}

	f := NewFold(date, "HK.00700")
	total := decimal.Zero
	for i, p := range premiums {
		f.Apply(trade(model.Call, "OPT", 100, p, time.Time{}))
		total = total.Add(decimal.RequireFromString(p))

		want := total.Div(decimal.NewFromInt(int64(i + 1)))
		got := f.Summary().AvgPremium
		// Division carries finite precision; compare within a tight bound.
		if got.Sub(want).Abs().GreaterThan(decimal.RequireFromString("0.0000000001")) {
			t.Fatalf("after %d trades: AvgPremium = %s, want %s", i+1, got, want)
		}
	}
}

func TestFold_RepeatedOptionAndExpiryNotDoubleCounted(t *testing.T) {
	date := time.Date(2025, 8, 22, 0, 0, 0, 0, hkt)
	exp := time.Date(2025, 8, 30, 0, 0, 0, 0, hkt)

	f := NewFold(date, "HK.00700")
	f.Apply(trade(model.Call, "SAME", 100, "5.0", exp))
	f.Apply(trade(model.Call, "SAME", 200, "5.0", exp))
	f.Apply(trade(model.Call, "SAME", 300, "5.0", exp))

	s := f.Summary()
	if s.ActiveOptions != 1 {
		t.Errorf("ActiveOptions = %d, want 1", s.ActiveOptions)
	}
	if s.UniqueExpiryDates != 1 {
		t.Errorf("UniqueExpiryDates = %d, want 1", s.UniqueExpiryDates)
	}
	if s.TotalTrades != 3 {
		t.Errorf("TotalTrades = %d, want 3", s.TotalTrades)
	}
}

func TestFold_ZeroExpiryIgnored(t *testing.T) {
	date := time.Date(2025, 8, 22, 0, 0, 0, 0, hkt)

	f := NewFold(date, "HK.00700")
	f.Apply(trade(model.Call, "OPT", 100, "5.0", time.Time{}))

	if got := f.Summary().UniqueExpiryDates; got != 0 {
		t.Errorf("UniqueExpiryDates = %d, want 0 for unknown expiry", got)
	}
}

func TestFold_MaxSingleTradeMonotonic(t *testing.T) {
	date := time.Date(2025, 8, 22, 0, 0, 0, 0, hkt)

	f := NewFold(date, "HK.00700")
	f.Apply(trade(model.Call, "A", 500, "5.0", time.Time{}))
	f.Apply(trade(model.Put, "B", 200, "5.0", time.Time{}))

	if got := f.Summary().MaxSingleTrade; !got.Equal(decimal.NewFromInt(500)) {
		t.Errorf("MaxSingleTrade = %s, want 500", got)
	}
}
