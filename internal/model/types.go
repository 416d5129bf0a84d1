package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OptionKind distinguishes calls from puts.
type OptionKind string

const (
	Call OptionKind = "Call"
	Put  OptionKind = "Put"
)

// Moneyness classifies an option strike relative to the underlying price.
type Moneyness string

const (
	InTheMoney    Moneyness = "ITM"
	AtTheMoney    Moneyness = "ATM"
	OutOfTheMoney Moneyness = "OTM"
)

// Channel identifies a notification transport.
type Channel string

const (
	ChannelChat    Channel = "chat"
	ChannelEmail   Channel = "email"
	ChannelDesktop Channel = "desktop"
)

// AttemptStatus is the lifecycle state of a delivery attempt.
type AttemptStatus string

const (
	AttemptPending AttemptStatus = "pending"
	AttemptSuccess AttemptStatus = "success"
	AttemptFailed  AttemptStatus = "failed"
)

// StockInfo is reference data for an underlying.
// Identity (Code) is immutable once created; the rest is upserted.
type StockInfo struct {
	Code   string `json:"code"`   // e.g. "HK.00700"
	Name   string `json:"name"`   // Display name
	Market string `json:"market"` // e.g. "HK"
	Sector string `json:"sector"`
}

// TradeEvent is an immutable large option trade fact. The surrogate ID is
// assigned by the store on insert; there is no natural dedup key in the
// feed data, so writes are at-least-once and resubmission protection is
// the feed client's contract.
type TradeEvent struct {
	ID        int64     `json:"id"`         // Surrogate key, assigned on insert
	TradeTime time.Time `json:"trade_time"` // Exchange trade timestamp

	StockCode  string          `json:"stock_code"`  // e.g. "HK.00700"
	StockName  string          `json:"stock_name"`
	StockPrice decimal.Decimal `json:"stock_price"` // Underlying price at trade time

	OptionCode string          `json:"option_code"`  // e.g. "TCH250830C640000"
	OptionKind OptionKind      `json:"option_type"`
	Strike     decimal.Decimal `json:"strike_price"`
	Expiry     time.Time       `json:"expiry_date"`  // Expiry date (zero if unknown)

	Volume    int64           `json:"volume"`
	Turnover  decimal.Decimal `json:"turnover"`
	Premium   decimal.Decimal `json:"premium"`
	Direction string          `json:"direction"` // "buy", "sell", "neutral"

	BidPrice   decimal.Decimal `json:"bid_price"`
	AskPrice   decimal.Decimal `json:"ask_price"`
	LastPrice  decimal.Decimal `json:"last_price"`
	ChangeRate decimal.Decimal `json:"change_rate"`

	ImpliedVolatility decimal.Decimal `json:"implied_volatility"`
	Delta             decimal.Decimal `json:"delta"`
	Gamma             decimal.Decimal `json:"gamma"`
	Theta             decimal.Decimal `json:"theta"`
	Vega              decimal.Decimal `json:"vega"`

	OpenInterest int64           `json:"open_interest"`
	TimeToExpiry decimal.Decimal `json:"time_to_expiry"` // Days, fractional
	Moneyness    Moneyness       `json:"moneyness"`
	DataSource   string          `json:"data_source"`    // e.g. "futu"
}

// PriceSnapshot is an immutable underlying price observation,
// unique per (StockCode, RecordTime).
type PriceSnapshot struct {
	StockCode    string          `json:"stock_code"`
	StockName    string          `json:"stock_name"`
	Price        decimal.Decimal `json:"price"`
	ChangeAmount decimal.Decimal `json:"change_amount"`
	ChangeRate   decimal.Decimal `json:"change_rate"`
	Volume       int64           `json:"volume"`
	Turnover     decimal.Decimal `json:"turnover"`
	HighPrice    decimal.Decimal `json:"high_price"`
	LowPrice     decimal.Decimal `json:"low_price"`
	OpenPrice    decimal.Decimal `json:"open_price"`
	PrevClose    decimal.Decimal `json:"prev_close"`
	MarketCap    decimal.Decimal `json:"market_cap"`
	PERatio      decimal.Decimal `json:"pe_ratio"`
	RecordTime   time.Time       `json:"record_time"`
	DataSource   string          `json:"data_source"`
}

// DailySummary is the per-stock per-day aggregate, keyed by
// (SummaryDate, StockCode). It equals the fold over all committed
// TradeEvents for that key at all times.
type DailySummary struct {
	SummaryDate time.Time `json:"summary_date"` // Date component only
	StockCode   string    `json:"stock_code"`
	StockName   string    `json:"stock_name"`

	TotalTrades   int64           `json:"total_trades"`
	TotalVolume   int64           `json:"total_volume"`
	TotalTurnover decimal.Decimal `json:"total_turnover"`

	CallTrades   int64           `json:"call_trades"`
	PutTrades    int64           `json:"put_trades"`
	CallVolume   int64           `json:"call_volume"`
	PutVolume    int64           `json:"put_volume"`
	CallTurnover decimal.Decimal `json:"call_turnover"`
	PutTurnover  decimal.Decimal `json:"put_turnover"`

	AvgPremium     decimal.Decimal `json:"avg_premium"`      // Running weighted mean of premium
	MaxSingleTrade decimal.Decimal `json:"max_single_trade"` // Largest single turnover

	ActiveOptions     int64 `json:"active_options"`      // Distinct option codes seen
	UniqueExpiryDates int64 `json:"unique_expiry_dates"` // Distinct expiry dates seen
}

// DeliveryAttempt records one notification attempt chain for an event on a
// channel. RetryCount increments per attempt; the record becomes terminal
// on success or once the retry ceiling is hit.
type DeliveryAttempt struct {
	ID          uuid.UUID     `json:"id"`
	EventID     int64         `json:"event_id"`     // Source TradeEvent surrogate ID
	Channel     Channel       `json:"channel"`
	Status      AttemptStatus `json:"status"`
	Content     string        `json:"content"`
	ErrorDetail string        `json:"error_detail"`
	RetryCount  int           `json:"retry_count"`
	AttemptTime time.Time     `json:"attempt_time"`
}

// SystemLogEntry is an append-only diagnostic fact.
type SystemLogEntry struct {
	Level       string        `json:"level"`        // "debug", "info", "warn", "error"
	Module      string        `json:"module"`       // Originating component, e.g. "writer"
	Operation   string        `json:"operation"`    // e.g. "write_trade"
	Message     string        `json:"message"`
	ErrorDetail string        `json:"error_detail"`
	Duration    time.Duration `json:"duration"`
	CreatedAt   time.Time     `json:"created_at"`
}
