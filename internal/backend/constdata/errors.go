package constdata

import (
	"fmt"

	"kiln/internal/diag"
	"kiln/internal/source"
)

// ErrorKind enumerates the ways constant materialization fails.
type ErrorKind uint8

const (
	// ErrErroneousConstant: the evaluator failed and already diagnosed the
	// constant upstream. Codegen of the enclosing item is abandoned.
	ErrErroneousConstant ErrorKind = iota + 1
	// ErrPolymorphicConstant: an unresolved generic reached codegen. The
	// monomorphization guarantee was violated; not recoverable.
	ErrPolymorphicConstant
	// ErrTLSCapture: a non-thread-local memory object's initializer holds
	// the address of thread-local storage, which has no link-time address.
	ErrTLSCapture
	// ErrMalformedConstant: slice bounds or relocation invariants violated.
	// Indicates an evaluator bug or malformed input; not recoverable.
	ErrMalformedConstant
)

// Internal reports whether the kind is an internal-consistency violation
// that must abort the run rather than become a diagnostic.
func (k ErrorKind) Internal() bool {
	return k == ErrPolymorphicConstant || k == ErrMalformedConstant
}

// Code maps the kind to its diagnostic code.
func (k ErrorKind) Code() diag.Code {
	switch k {
	case ErrErroneousConstant:
		return diag.CodegenErroneousConstant
	case ErrPolymorphicConstant:
		return diag.CodegenPolymorphicConstant
	case ErrTLSCapture:
		return diag.CodegenTLSCapture
	case ErrMalformedConstant:
		return diag.CodegenMalformedConstant
	}
	return diag.UnknownCode
}

// Error is the materialization error type. Callers branch on Kind: the
// internal kinds are fatal, the rest abandon only the enclosing item.
type Error struct {
	Kind ErrorKind
	Span source.Span
	Msg  string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case ErrErroneousConstant:
		if e.Msg == "" {
			return "erroneous constant encountered"
		}
		return fmt.Sprintf("erroneous constant encountered: %s", e.Msg)
	case ErrPolymorphicConstant:
		return fmt.Sprintf("codegen encountered polymorphic constant: %s", e.Msg)
	case ErrTLSCapture:
		return fmt.Sprintf("static memory captures a thread-local address: %s", e.Msg)
	case ErrMalformedConstant:
		return fmt.Sprintf("malformed constant: %s", e.Msg)
	default:
		return fmt.Sprintf("materialization error kind=%d: %s", e.Kind, e.Msg)
	}
}

func erroneous(span source.Span, msg string) *Error {
	return &Error{Kind: ErrErroneousConstant, Span: span, Msg: msg}
}

func polymorphic(span source.Span, msg string) *Error {
	return &Error{Kind: ErrPolymorphicConstant, Span: span, Msg: msg}
}

func tlsCapture(span source.Span, msg string) *Error {
	return &Error{Kind: ErrTLSCapture, Span: span, Msg: msg}
}

func malformed(span source.Span, format string, args ...any) *Error {
	return &Error{Kind: ErrMalformedConstant, Span: span, Msg: fmt.Sprintf(format, args...)}
}
