// Package oplog persists diagnostic log entries to the system_logs table.
//
// Entries are buffered and flushed in batches on a ticker, following the
// same consume/flush shape as the record writer. Persistence is
// best-effort: when the store is unreachable the entries still reach the
// process logger, and the batch is dropped rather than blocking the
// components that emitted it.
package oplog
