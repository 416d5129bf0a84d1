// Package delivery tracks notification attempts for recorded trade
// events.
//
// Each (event, channel) pair owns exactly one attempt record. The record
// starts pending, increments its retry count on each subsequent attempt,
// and becomes terminal on success or once the retry ceiling is reached.
// Terminal records refuse further attempts: a delivered event stays
// delivered, an exhausted chain stays exhausted.
//
// The tracker persists state; it does not send notifications itself.
// Callers perform the send and report the outcome back.
package delivery
