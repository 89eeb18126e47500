// Package errs defines the tagged error kinds shared across the trading core.
// Every failure a caller may want to branch on carries one of these kinds; the
// route layer maps kinds to HTTP statuses without parsing message text.
package errs

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindSymbolNotFound
	KindUpstreamUnavailable
	KindInsufficientFunds
	KindInsufficientShares
	KindNoSuchHolding
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindSymbolNotFound:
		return "symbol_not_found"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindInsufficientShares:
		return "insufficient_shares"
	case KindNoSuchHolding:
		return "no_such_holding"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// Error is a kind-tagged error with a human-readable message and an optional
// wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a kind-tagged error with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags an underlying error with a kind and message, keeping the cause
// reachable via errors.Is/As.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind from err, or KindUnknown for untagged errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var ise *InsufficientSharesError
	if errors.As(err, &ise) {
		return KindInsufficientShares
	}
	return KindUnknown
}

// InsufficientSharesError reports a sell for more shares than are held. It
// carries the exact counts so the trade layer can format the user-facing
// message with correct pluralization.
type InsufficientSharesError struct {
	Symbol    string
	Requested decimal.Decimal
	Owned     decimal.Decimal
}

func (e *InsufficientSharesError) Error() string {
	return fmt.Sprintf("cannot sell %s shares of %s: only %s held",
		e.Requested.String(), e.Symbol, e.Owned.String())
}
