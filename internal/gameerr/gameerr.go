// internal/gameerr/gameerr.go
package gameerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport mapping and retry policy.
type Kind int

const (
	KindUnknown Kind = iota

	// KindValidation covers client-caused conditions: malformed or missing
	// fields, illegal moves, wrong turn, unknown game types. Never retryable.
	KindValidation

	// KindNotFound covers lookups of absent sessions or moves.
	KindNotFound

	// KindStateConflict covers operations invalid for the current session
	// status, e.g. applying a move to a finished session.
	KindStateConflict

	// KindInfrastructure covers broker or store failures. Retryable with
	// backoff at the consumer layer.
	KindInfrastructure
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindStateConflict:
		return "state_conflict"
	case KindInfrastructure:
		return "infrastructure"
	default:
		return "unknown"
	}
}

// Error is the typed failure surfaced at the synchronous operation boundary.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func StateConflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindStateConflict, Msg: fmt.Sprintf(format, args...)}
}

// Infrastructure wraps err so callers can still reach the underlying cause.
func Infrastructure(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindInfrastructure, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the Kind from err, or KindUnknown if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Retryable reports whether a consumer should requeue the message that
// produced err. Client-caused failures are dropped, not retried.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindValidation, KindNotFound, KindStateConflict:
		return false
	default:
		return true
	}
}
