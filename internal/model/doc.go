// Package model defines the persisted entities of the recorder.
//
// Entities:
//   - StockInfo: stable reference data, upserted by code
//   - TradeEvent: append-only large option trade facts
//   - PriceSnapshot: underlying price facts, unique per (code, record time)
//   - DailySummary: incrementally maintained per-stock per-day aggregate
//   - DeliveryAttempt: notification attempt lifecycle with bounded retry
//   - SystemLogEntry: append-only diagnostic facts
//
// Monetary and ratio fields are fixed-point decimals to avoid rounding
// drift in aggregation. Times carry explicit timezone offsets (+08:00
// regional convention at the storage layer).
package model
