// Package store provides read queries over recorded trades and daily
// summaries, serving the operational HTTP endpoints and the dbctl tool.
package store
