package splitter

import (
	"errors"
	"fmt"
)

// ErrorKind identifies the pipeline step an error originated from
type ErrorKind string

const (
	KindDecode  ErrorKind = "decode"
	KindParse   ErrorKind = "parse"
	KindEncode  ErrorKind = "encode"
	KindArchive ErrorKind = "archive"
)

// Error is the single error type returned by the pipeline.
// Any Error aborts the whole split; there is no partial result.
type Error struct {
	Kind    ErrorKind
	Stage   Stage
	Message string
	Cause   error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e == nil {
		return "unknown splitter error"
	}
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind) + " failed"
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, msg, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, msg)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is reports whether target is the sentinel for the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return t.Message == "" && t.Cause == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrDecode  = &Error{Kind: KindDecode}
	ErrParse   = &Error{Kind: KindParse}
	ErrEncode  = &Error{Kind: KindEncode}
	ErrArchive = &Error{Kind: KindArchive}
)

func newError(kind ErrorKind, stage Stage, cause error, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Stage:   stage,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// KindOf returns the kind of a pipeline error, or "" for foreign errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
