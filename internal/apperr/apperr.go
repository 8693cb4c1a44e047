// Package apperr defines the error taxonomy shared by the resolver, the
// similarity orchestrator and the datastore layer. Kinds are stable across
// package boundaries so callers can branch on classification without string
// matching, and so the tool surface can keep "not found" and "unavailable"
// distinguishable.
package apperr

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies an error into one of the supported failure classes.
type Kind int

const (
	// KindUnknown is the zero value; errors without an attached kind.
	KindUnknown Kind = iota
	// KindInvalidArgument: bad or missing caller input, rejected before any
	// datastore call.
	KindInvalidArgument
	// KindNotFound: no entity stored under the canonical key.
	KindNotFound
	// KindMissingEmbedding: the entity exists but carries no embedding and
	// cannot anchor a similarity search.
	KindMissingEmbedding
	// KindTimeout: a bounded operation exceeded its deadline.
	KindTimeout
	// KindUnavailable: datastore connectivity or transport failure.
	KindUnavailable
	// KindInternal: malformed stored data, e.g. an embedding blob of the
	// wrong size or unparseable attribute JSON.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindNotFound:
		return "not_found"
	case KindMissingEmbedding:
		return "missing_embedding"
	case KindTimeout:
		return "timeout"
	case KindUnavailable:
		return "unavailable"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error carries a kind, the operation that failed and an optional cause.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %s: %v", e.Op, e.Kind, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// E builds an error with a kind and a message.
func E(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and operation to an underlying error. If the cause
// already carries a kind, that kind wins so classification survives layering.
func Wrap(kind Kind, op string, err error) *Error {
	if err == nil {
		return nil
	}
	if inner := KindOf(err); inner != KindUnknown {
		kind = inner
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf walks the error chain and returns the first attached kind.
// A bare context deadline classifies as timeout, a bare cancellation as
// unavailable (the operation was torn down underneath the caller).
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindUnavailable
	}
	return KindUnknown
}

// Is reports whether err classifies as kind.
func Is(err error, kind Kind) bool { return KindOf(err) == kind }
