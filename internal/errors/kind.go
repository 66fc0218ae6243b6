package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/google/uuid"
)

// As is a passthrough to the standard library's errors.As, so callers
// of this package never need a second errors import.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Is is a passthrough to the standard library's errors.Is.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// Kind is the RPC-facing error vocabulary: the six surfaces a tool call,
// translation, or store operation can terminate in. It rides alongside
// Type/Severity rather than replacing them — Type/Severity still drive
// DetailedString() and internal logging, Kind drives what the dispatcher
// puts on the wire.
type Kind string

const (
	KindUserInput   Kind = "USER_INPUT"
	KindTimeout     Kind = "TIMEOUT"
	KindUnavailable Kind = "UNAVAILABLE"
	KindCircuitOpen Kind = "CIRCUIT_OPEN"
	KindRateLimited Kind = "RATE_LIMITED"
	KindInternal    Kind = "INTERNAL"
)

// WithKind attaches a Kind to an existing *Error via its Context map so
// the dispatcher can read it back without a new field changing the
// struct's equality semantics used by Is().
func (e *Error) WithKind(k Kind) *Error {
	return e.WithContext("kind", k)
}

// KindOf extracts the Kind recorded by WithKind, defaulting to Internal
// for plain errors and for *Error values that never got a Kind attached.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	e, ok := err.(*Error)
	if !ok {
		return KindInternal
	}
	if k, ok := e.Context["kind"].(Kind); ok {
		return k
	}
	switch e.Type {
	case ErrorTypeValidation, ErrorTypeSecurity:
		return KindUserInput
	case ErrorTypeNetwork, ErrorTypeDatabase:
		return KindUnavailable
	default:
		return KindInternal
	}
}

// UserInputError marks a request-shape problem: bad repository id, bad
// tool argument, a query the validator rejected.
func UserInputError(message string) *Error {
	return New(ErrorTypeValidation, SeverityLow, message).WithKind(KindUserInput)
}

// UserInputErrorf is UserInputError with formatting.
func UserInputErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeValidation, SeverityLow, fmt.Sprintf(format, args...)).WithKind(KindUserInput)
}

// TimeoutError marks a cooperative deadline expiry on an outward call.
func TimeoutError(err error, message string) *Error {
	return Wrap(err, ErrorTypeNetwork, SeverityMedium, message).WithKind(KindTimeout)
}

// UnavailableError marks a downstream dependency (store, LLM endpoint)
// that could not be reached at all.
func UnavailableError(err error, message string) *Error {
	return Wrap(err, ErrorTypeNetwork, SeverityHigh, message).WithKind(KindUnavailable)
}

// CircuitOpenError marks a call short-circuited by an open breaker.
func CircuitOpenError(message string) *Error {
	return New(ErrorTypeExternal, SeverityMedium, message).WithKind(KindCircuitOpen)
}

// RateLimitedError marks a client that exceeded its token-bucket budget.
func RateLimitedError(message string) *Error {
	return New(ErrorTypeExternal, SeverityLow, message).WithKind(KindRateLimited)
}

// CorrelatedInternal wraps an unexpected error with a correlation id the
// caller can surface in place of the raw message; the id is also logged
// with the full error so operators can match the two up.
func CorrelatedInternal(err error) (*Error, string) {
	id := uuid.NewString()
	e := Wrap(err, ErrorTypeInternal, SeverityHigh, "internal error").
		WithKind(KindInternal).
		WithContext("correlation_id", id)
	return e, id
}
