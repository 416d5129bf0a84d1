// Package database provides connection pool management for PostgreSQL.
//
// The pool is the only shared mutable resource in the core. Acquisition is
// bounded by a configurable timeout and every handed-out handle has passed
// a liveness probe; dead handles are discarded and replaced, never
// returned. A minimum-idle reserve keeps health probes from being starved
// by sustained write load.
//
// Sessions are pinned to the regional time zone so stored timestamps honor
// the +08:00 storage contract.
package database
