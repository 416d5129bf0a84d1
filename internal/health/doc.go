// Package health runs periodic liveness probes against the store and
// maintains process-wide status with hysteresis.
//
// One failed probe degrades the status; a configured number of consecutive
// failures marks the store down; a single success restores healthy. The
// writer consults the status to decide between writing immediately and
// queueing for replay.
package health
