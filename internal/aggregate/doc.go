// Package aggregate maintains the per-stock, per-day summary.
//
// Apply runs inside the record writer's transaction, so the summary and
// the underlying trade fact commit or roll back together; at no point can
// a reader observe a summary that diverges from the committed facts.
//
// The update is a single atomic upsert. Row-level conflict handling
// serializes concurrent writers to the same (date, stock) key while
// writes for different stocks proceed in parallel. Distinct expiry and
// option counters are backed by a seen-members side table probed with
// ON CONFLICT DO NOTHING, so each event costs constant work.
package aggregate
