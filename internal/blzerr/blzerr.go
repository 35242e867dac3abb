// Package blzerr defines the error taxonomy shared across blz's core
// packages. Every error that crosses a package boundary carries a Kind so
// callers (CLI, MCP transport, scripts) can map it to an exit code or a
// stable JSON discriminant without parsing message text.
package blzerr

import (
	"errors"
	"fmt"
)

// Kind discriminates the class of failure. Kinds are stable identifiers;
// adding a new one is safe, renaming or removing one is not.
type Kind string

const (
	InvalidAlias     Kind = "InvalidAlias"
	InvalidURL       Kind = "InvalidUrl"
	UnsupportedLocale Kind = "UnsupportedLocale"
	NetworkError     Kind = "NetworkError"
	HTTPError        Kind = "HttpError"
	TimeoutError     Kind = "TimeoutError"
	ParseError       Kind = "ParseError"
	IndexError       Kind = "IndexError"
	IndexCorrupt     Kind = "IndexCorrupt"
	SchemaMismatch   Kind = "SchemaMismatch"
	SourceNotFound   Kind = "SourceNotFound"
	SourceExists     Kind = "SourceExists"
	OutOfRange       Kind = "OutOfRange"
	InvalidCitation  Kind = "InvalidCitation"
	LockContention   Kind = "LockContention"
	FileSystem       Kind = "FileSystem"
)

// Error is the concrete error type returned across package boundaries.
// Error() includes the Cause's text verbatim, so a wrapped filesystem or
// index error can carry an absolute path; paths are not relativized.
type Error struct {
	Kind    Kind
	Message string
	Status  int // populated for Kind == HTTPError
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error that records an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// HTTP builds an HTTPError carrying the upstream status code.
func HTTP(status int, message string) *Error {
	return &Error{Kind: HTTPError, Message: message, Status: status}
}

// OutOfRangeErr builds the OutOfRange error shape used by the retriever,
// carrying the three values a caller needs to render a precise message.
func OutOfRangeErr(start, end, total int) *Error {
	return &Error{
		Kind:    OutOfRange,
		Message: fmt.Sprintf("requested range %d-%d exceeds total lines %d", start, end, total),
	}
}

// Is reports whether err (or any error it wraps) is a *Error of the given
// Kind. This lets callers write `if blzerr.Is(err, blzerr.SourceNotFound)`.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err if it is (or wraps) a *Error, and
// returns ("", false) otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// ExitCode maps a Kind to blz's CLI exit code policy: 0 success, 1 general
// error, 2 invalid arguments, 3 network/fetch error, 4 filesystem error.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	kind, ok := KindOf(err)
	if !ok {
		return 1
	}
	switch kind {
	case InvalidAlias, InvalidURL, InvalidCitation:
		return 2
	case NetworkError, HTTPError, TimeoutError, UnsupportedLocale:
		return 3
	case FileSystem, LockContention:
		return 4
	default:
		return 1
	}
}
