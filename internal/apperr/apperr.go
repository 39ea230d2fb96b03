package apperr

import (
	"errors"
	"fmt"
)

// Kind is a stable, client-facing error code.
type Kind string

const (
	KindCardNotFound              Kind = "CARD_NOT_FOUND"
	KindCardNotActive             Kind = "CARD_NOT_ACTIVE"
	KindCardNotProvisioned        Kind = "CARD_NOT_PROVISIONED"
	KindInvalidCardState          Kind = "INVALID_CARD_STATE"
	KindChallengeInvalidOrExpired Kind = "CHALLENGE_INVALID_OR_EXPIRED"
	KindInvalidSignature          Kind = "INVALID_SIGNATURE"
	KindInvalidPinFormat          Kind = "INVALID_PIN_FORMAT"
	KindPinNotSet                 Kind = "PIN_NOT_SET"
	KindInvalidPin                Kind = "INVALID_PIN"
	KindCardBlocked               Kind = "CARD_BLOCKED"
	KindInvalidAmount             Kind = "INVALID_AMOUNT"
	KindInsufficientFunds         Kind = "INSUFFICIENT_FUNDS"
	KindAccountNotFound           Kind = "ACCOUNT_NOT_FOUND"
	KindUnauthorized              Kind = "UNAUTHORIZED"
	KindInternal                  Kind = "INTERNAL"
)

// Error is a client-facing error. Cause is kept for logs only and is never
// serialized, so store-specific detail does not leak to callers.
type Error struct {
	Kind    Kind
	Message string
	Cause   error

	// Meta carries non-sensitive response hints, e.g. remaining PIN attempts.
	Meta map[string]interface{}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates an error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a cause to a new error.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Internal wraps an unexpected failure without exposing its detail.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Cause: cause}
}

// KindOf returns the kind of err, or KindInternal for unrecognized errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
