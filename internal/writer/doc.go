// Package writer implements the validated write path for trade and price
// facts.
//
// Writes happen inside a transaction that also applies the daily
// aggregate, so fact and summary commit or roll back together. While the
// store is down, writes are either queued in a bounded drop-oldest replay
// queue (default) or failed fast, per configuration. Transient storage
// failures are retried with exponential backoff up to a ceiling; malformed
// input is rejected immediately and never retried.
//
// Trade facts are append-only with a store-assigned surrogate identity.
// There is no natural trade-level dedup key, so delivery into the writer
// is at-least-once and resubmission protection is the feed client's
// contract. Price snapshots are idempotent on (stock code, record time).
package writer
