// Package fault defines the error taxonomy shared by the storage core.
//
// Categories:
//   - Rejected: malformed input, never retried
//   - Transient: connectivity or lock contention, retried with backoff
//   - Fatal: schema/constraint violations indicating a bug, never retried
//   - PoolExhausted: no connection capacity within the acquire timeout
//   - RetryExhausted: a delivery attempt chain hit its retry ceiling
package fault

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors. Callers match with errors.Is.
var (
	ErrRejected       = errors.New("rejected: malformed input")
	ErrTransient      = errors.New("transient storage failure")
	ErrFatal          = errors.New("fatal storage failure")
	ErrPoolExhausted  = errors.New("connection pool exhausted")
	ErrRetryExhausted = errors.New("delivery retries exhausted")
)

// Classify maps a low-level storage error onto the taxonomy.
// Errors already carrying a sentinel pass through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrRejected) || errors.Is(err, ErrTransient) ||
		errors.Is(err, ErrFatal) || errors.Is(err, ErrPoolExhausted) ||
		errors.Is(err, ErrRetryExhausted) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Transient(err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classifyCode(pgErr.Code, err)
	}

	// Anything without a SQLSTATE is treated as a connectivity problem:
	// dial failures, closed connections, and pool timeouts all surface
	// as plain errors from pgx.
	return Transient(err)
}

func classifyCode(code string, err error) error {
	switch code {
	case "40001", "40P01": // serialization_failure, deadlock_detected
		return Transient(err)
	case "57P01", "57P02", "57P03": // admin_shutdown, crash_shutdown, cannot_connect_now
		return Transient(err)
	}
	if len(code) >= 2 {
		switch code[:2] {
		case "08": // connection exceptions
			return Transient(err)
		case "22": // data exceptions: bad enum value, malformed literal
			return Rejected(err)
		case "23": // integrity constraint violations
			return Fatal(err)
		case "42": // syntax or access rule violation: a bug in our SQL
			return Fatal(err)
		}
	}
	return Transient(err)
}

// Rejected wraps err as a rejection.
func Rejected(err error) error {
	return &taggedError{tag: ErrRejected, err: err}
}

// Transient wraps err as a transient failure.
func Transient(err error) error {
	return &taggedError{tag: ErrTransient, err: err}
}

// Fatal wraps err as a fatal failure.
func Fatal(err error) error {
	return &taggedError{tag: ErrFatal, err: err}
}

// PoolExhausted wraps err as a pool exhaustion failure.
func PoolExhausted(err error) error {
	return &taggedError{tag: ErrPoolExhausted, err: err}
}

// RetryExhausted wraps err as a retry-ceiling failure.
func RetryExhausted(err error) error {
	return &taggedError{tag: ErrRetryExhausted, err: err}
}

// IsRetryable reports whether err is worth retrying locally.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrPoolExhausted)
}

// taggedError carries a taxonomy sentinel alongside the underlying cause.
type taggedError struct {
	tag error
	err error
}

func (e *taggedError) Error() string {
	if e.err == nil {
		return e.tag.Error()
	}
	return e.tag.Error() + ": " + e.err.Error()
}

func (e *taggedError) Is(target error) bool { return target == e.tag }

func (e *taggedError) Unwrap() error { return e.err }
