// Package kerr defines the error taxonomy shared by every storage package:
// LogicError, IOError, RecoveryError, CapacityError and InvariantViolation.
// All five are one Kind-tagged Error type; IO and Recovery errors keep their
// underlying cause in Error.Cause and expose it through Unwrap, so callers
// can still errors.Is/As through to it.
package kerr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kasuganosora/kuzugraph/pkg/utils"
)

// Kind classifies which of the taxonomy's five buckets an error belongs to.
type Kind int

const (
	// KindLogic marks a precondition or usage violation by the caller, e.g.
	// committing a transaction that's already committed.
	KindLogic Kind = iota
	// KindIO marks a failure from the underlying filesystem.
	KindIO
	// KindRecovery marks a failure encountered while replaying or
	// recovering the write-ahead log.
	KindRecovery
	// KindCapacity marks a resource exhausted condition, e.g. a page
	// index overflowing its chunk.
	KindCapacity
	// KindInvariantViolation marks state that should be provably
	// impossible, e.g. a rel-offset fewer than zero.
	KindInvariantViolation
)

func (k Kind) String() string {
	switch k {
	case KindLogic:
		return "LogicError"
	case KindIO:
		return "IOError"
	case KindRecovery:
		return "RecoveryError"
	case KindCapacity:
		return "CapacityError"
	case KindInvariantViolation:
		return "InvariantViolation"
	default:
		return "UnknownError"
	}
}

// Error is the concrete type behind every error this module returns.
type Error struct {
	Kind    Kind
	Message string
	Stack   []string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// StackString renders the captured stack trace (if any) as a multi-line
// string suitable for diagnostics.
func (e *Error) StackString() string {
	return strings.Join(e.Stack, "\n")
}

func newError(kind Kind, captureStack bool, format string, args ...interface{}) *Error {
	e := &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
	if captureStack {
		e.Stack = utils.CaptureStackTrace(1)
	}
	return e
}

// Logic builds a LogicError: the caller violated a precondition.
func Logic(format string, args ...interface{}) *Error {
	return newError(KindLogic, true, format, args...)
}

// IO wraps a filesystem error as an IOError.
func IO(cause error, format string, args ...interface{}) *Error {
	e := newError(KindIO, false, format, args...)
	e.Cause = cause
	return e
}

// Recovery builds a RecoveryError encountered while replaying the WAL.
func Recovery(cause error, format string, args ...interface{}) *Error {
	e := newError(KindRecovery, false, format, args...)
	e.Cause = cause
	return e
}

// Capacity builds a CapacityError: a resource limit was exceeded.
func Capacity(format string, args ...interface{}) *Error {
	return newError(KindCapacity, false, format, args...)
}

// InvariantViolation builds an error for state that should be provably
// impossible. Always captures a stack trace since these indicate bugs.
func InvariantViolation(format string, args ...interface{}) *Error {
	return newError(KindInvariantViolation, true, format, args...)
}

// Is reports whether err (or any error it wraps) is a kerr.Error of kind k.
func Is(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}
