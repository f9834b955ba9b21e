// Package rqlerr defines a small error-kind taxonomy: every failure
// path in the catalog, row log, codec, parsers and engine is surfaced
// as one of these kinds so a caller can branch with errors.Is instead
// of matching on message text.
package rqlerr

import "errors"

// Kind classifies a failure.
type Kind int

const (
	// KindNotFound: the table's schema or data file does not exist.
	KindNotFound Kind = iota
	// KindInvalidData: a frame marker, length, or encoded value could
	// not be decoded from what is otherwise a present file.
	KindInvalidData
	// KindInvalidInput: a literal failed to parse against its column's
	// declared type, or an arity mismatch occurred.
	KindInvalidInput
	// KindUnexpectedEOF: the row log ended in the middle of a frame.
	KindUnexpectedEOF
	// KindParse: the SQL surface or expression grammar rejected the
	// input.
	KindParse
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindInvalidData:
		return "invalid data"
	case KindInvalidInput:
		return "invalid input"
	case KindUnexpectedEOF:
		return "unexpected eof"
	case KindParse:
		return "parse error"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind so the engine and REPL
// can decide whether a statement aborts or the line simply fails.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.String()
	}
	return e.Op + ": " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an *Error for op with the given kind, wrapping cause
// (which may be nil).
func New(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
