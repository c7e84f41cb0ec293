package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for retry policy and HTTP status mapping.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuth
	KindUpstream
	KindValidation
	KindNotFound
	KindAI
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindUpstream:
		return "upstream"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindAI:
		return "ai"
	default:
		return "unknown"
	}
}

// Well-known reasons carried alongside the kind.
const (
	ReasonNotAuthenticated = "not_authenticated"
	ReasonRefreshFailed    = "refresh_failed"
	ReasonTimeout          = "timeout"
	ReasonMissingVariable  = "missing_variable"
	ReasonMalformedOutput  = "malformed_output"
)

// Error carries enough context to render a user-facing message: the kind,
// the operation that failed, an optional machine-readable reason and the
// underlying cause.
type Error struct {
	Kind   Kind
	Op     string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func Auth(op, reason string, err error) *Error {
	return &Error{Kind: KindAuth, Op: op, Reason: reason, Err: err}
}

func Upstream(op, reason string, err error) *Error {
	return &Error{Kind: KindUpstream, Op: op, Reason: reason, Err: err}
}

func Validation(op, reason string, err error) *Error {
	return &Error{Kind: KindValidation, Op: op, Reason: reason, Err: err}
}

func NotFound(op string, err error) *Error {
	return &Error{Kind: KindNotFound, Op: op, Err: err}
}

func AI(op, reason string, err error) *Error {
	return &Error{Kind: KindAI, Op: op, Reason: reason, Err: err}
}

// KindOf returns the kind of err, or KindUnknown for errors from outside
// this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// ReasonOf returns the reason of err, or "" when none is attached.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
