// Package hlerr defines the error kinds of the copytrading core as a
// small wrapped-error type: explicit, inspectable errors that propagate
// up the cadence stack instead of exception-based control flow.
package hlerr

import (
	"errors"
	"fmt"
)

// Kind is one of the eight error categories the scheduler and its cadences
// react to differently.
type Kind string

const (
	// TransientNetwork is a retryable network failure. Recovered locally by
	// the MarketClient via bounded retry with backoff.
	TransientNetwork Kind = "transient_network"
	// RateLimited means the upstream capability's rate limit was hit and
	// retry budget was exhausted.
	RateLimited Kind = "rate_limited"
	// ApiError is a non-429 4xx response. Surfaced to the cadence, which
	// skips the affected trader/page and continues with others.
	ApiError Kind = "api_error"
	// MalformedResponse means a response failed to parse. Never fatal; the
	// affected record is skipped.
	MalformedResponse Kind = "malformed_response"
	// InsufficientData marks a trader that failed an eligibility gate for
	// lack of data (e.g. too few snapshots). Not a true error; callers
	// still write a rejected Score row.
	InsufficientData Kind = "insufficient_data"
	// ConcurrencyConflict indicates the rebalance mutex was misused. In the
	// single-loop scheduling model this can only arise from a bug, and is
	// always fatal.
	ConcurrencyConflict Kind = "concurrency_conflict"
	// CapabilityUnavailable means the paper-trading (or live) execution
	// capability returned an infrastructure error. Fails only the current
	// action; other actions in the cycle continue.
	CapabilityUnavailable Kind = "capability_unavailable"
	// Fatal is a configuration error or unrecoverable storage corruption.
	// The scheduler shuts down cleanly on seeing this kind.
	Fatal Kind = "fatal"
)

// Error wraps an underlying cause with one of the Kind values above.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a Kind-tagged error with a message and no wrapped cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap tags an existing error with a Kind, preserving it for errors.Is/As.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the Kind of err, or "" if err does not carry one.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
