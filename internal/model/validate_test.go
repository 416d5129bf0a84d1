package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func validTrade() TradeEvent {
	return TradeEvent{
		TradeTime:  time.Date(2025, 8, 22, 10, 30, 0, 0, time.FixedZone("HKT", 8*3600)),
		StockCode:  "HK.00700",
		StockName:  "Tencent",
		OptionCode: "TCH250830C640000",
		OptionKind: Call,
		Strike:     decimal.NewFromInt(640),
		Volume:     100,
		Turnover:   decimal.NewFromInt(500000),
		Premium:    decimal.RequireFromString("5.12"),
		Moneyness:  OutOfTheMoney,
		DataSource: "futu",
	}
}

func TestValidStockCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"HK.00700", true},
		{"US.AAPL", true},
		{"HK.09988", true},
		{"hk.00700", false},
		{"HK00700", false},
		{"H.00700", false},
		{"", false},
		{"HK.", false},
		{"HK.00700; DROP TABLE stocks", false},
	}

	for _, tt := range tests {
		if got := ValidStockCode(tt.code); got != tt.want {
			t.Errorf("ValidStockCode(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestTradeEvent_Validate(t *testing.T) {
	ev := validTrade()
	if err := ev.Validate(); err != nil {
		t.Fatalf("valid trade rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*TradeEvent)
	}{
		{"zero trade time", func(e *TradeEvent) { e.TradeTime = time.Time{} }},
		{"bad stock code", func(e *TradeEvent) { e.StockCode = "00700" }},
		{"missing option code", func(e *TradeEvent) { e.OptionCode = "" }},
		{"bad option kind", func(e *TradeEvent) { e.OptionKind = "Straddle" }},
		{"negative volume", func(e *TradeEvent) { e.Volume = -1 }},
		{"negative turnover", func(e *TradeEvent) { e.Turnover = decimal.NewFromInt(-5) }},
		{"bad moneyness", func(e *TradeEvent) { e.Moneyness = "DEEP" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := validTrade()
			tt.mutate(&ev)
			if err := ev.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestTradeEvent_Validate_EmptyMoneynessAllowed(t *testing.T) {
	ev := validTrade()
	ev.Moneyness = ""
	if err := ev.Validate(); err != nil {
		t.Errorf("empty moneyness rejected: %v", err)
	}
}

func TestPriceSnapshot_Validate(t *testing.T) {
	snap := PriceSnapshot{
		StockCode:  "HK.00700",
		Price:      decimal.RequireFromString("632.50"),
		RecordTime: time.Now(),
	}
	if err := snap.Validate(); err != nil {
		t.Fatalf("valid snapshot rejected: %v", err)
	}

	snap.RecordTime = time.Time{}
	if err := snap.Validate(); err == nil {
		t.Error("zero record_time accepted")
	}

	snap.RecordTime = time.Now()
	snap.Price = decimal.NewFromInt(-1)
	if err := snap.Validate(); err == nil {
		t.Error("negative price accepted")
	}
}

func TestValidChannel(t *testing.T) {
	for _, c := range []Channel{ChannelChat, ChannelEmail, ChannelDesktop} {
		if !ValidChannel(c) {
			t.Errorf("ValidChannel(%q) = false, want true", c)
		}
	}
	if ValidChannel("carrier-pigeon") {
		t.Error("unknown channel accepted")
	}
}
