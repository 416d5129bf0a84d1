package model

import (
	"errors"
	"fmt"
	"regexp"
)

// stockCodePattern matches feed-style codes: market prefix, dot, symbol
// (e.g. "HK.00700", "US.AAPL").
var stockCodePattern = regexp.MustCompile(`^[A-Z]{2}\.[A-Z0-9]{1,10}$`)

// ValidStockCode reports whether code is syntactically valid.
func ValidStockCode(code string) bool {
	return stockCodePattern.MatchString(code)
}

// Validate checks that a trade event carries all required fields.
func (e *TradeEvent) Validate() error {
	if e.TradeTime.IsZero() {
		return errors.New("trade_time is required")
	}
	if !ValidStockCode(e.StockCode) {
		return fmt.Errorf("invalid stock code %q", e.StockCode)
	}
	if e.OptionCode == "" {
		return errors.New("option_code is required")
	}
	if e.OptionKind != Call && e.OptionKind != Put {
		return fmt.Errorf("invalid option kind %q", e.OptionKind)
	}
	if e.Volume < 0 {
		return fmt.Errorf("volume must be >= 0, got %d", e.Volume)
	}
	if e.Turnover.IsNegative() {
		return fmt.Errorf("turnover must be >= 0, got %s", e.Turnover)
	}
	switch e.Moneyness {
	case "", InTheMoney, AtTheMoney, OutOfTheMoney:
	default:
		return fmt.Errorf("invalid moneyness %q", e.Moneyness)
	}
	return nil
}

// Validate checks that a price snapshot carries all required fields.
func (s *PriceSnapshot) Validate() error {
	if !ValidStockCode(s.StockCode) {
		return fmt.Errorf("invalid stock code %q", s.StockCode)
	}
	if s.RecordTime.IsZero() {
		return errors.New("record_time is required")
	}
	if s.Price.IsNegative() {
		return fmt.Errorf("price must be >= 0, got %s", s.Price)
	}
	return nil
}

// Validate checks that stock reference data is well-formed.
func (s *StockInfo) Validate() error {
	if !ValidStockCode(s.Code) {
		return fmt.Errorf("invalid stock code %q", s.Code)
	}
	if s.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

// ValidChannel reports whether c is a known notification channel.
func ValidChannel(c Channel) bool {
	switch c {
	case ChannelChat, ChannelEmail, ChannelDesktop:
		return true
	}
	return false
}
