// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package node

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a parse failure, mirroring the error taxonomy
// surfaced to callers. KindSuccess is never attached to an error
// value; it exists so the zero Kind is meaningful when logged
// alongside a nil error.
type ErrorKind uint8

const (
	// KindSuccess indicates the operation completed; never attached to an error.
	KindSuccess ErrorKind = iota

	// KindOutOfMemory indicates a configured resource bound (depth, size) was exceeded.
	KindOutOfMemory

	// KindNullReference indicates a required input was absent.
	KindNullReference

	// KindIndexOutOfBounds indicates a numeric formatting buffer was exceeded.
	KindIndexOutOfBounds

	// KindInvalidSyntax indicates the parser could not tokenize the input.
	KindInvalidSyntax

	// KindInvalidEscape indicates the parser saw a malformed escape sequence.
	KindInvalidEscape

	// KindUnexpectedEndOfInput indicates the parser hit premature end of input.
	KindUnexpectedEndOfInput

	// KindInvalidType indicates the parser encountered an unrepresentable value.
	KindInvalidType

	// KindInvalidFilePath indicates the file could not be opened.
	KindInvalidFilePath
)

// String returns the taxonomy name, e.g. "InvalidSyntax".
func (k ErrorKind) String() string {
	switch k {
	case KindSuccess:
		return "Success"
	case KindOutOfMemory:
		return "OutOfMemory"
	case KindNullReference:
		return "NullReference"
	case KindIndexOutOfBounds:
		return "IndexOutOfBounds"
	case KindInvalidSyntax:
		return "InvalidSyntax"
	case KindInvalidEscape:
		return "InvalidEscape"
	case KindUnexpectedEndOfInput:
		return "UnexpectedEndOfInput"
	case KindInvalidType:
		return "InvalidType"
	case KindInvalidFilePath:
		return "InvalidFilePath"
	default:
		return fmt.Sprintf("ErrorKind(%d)", uint8(k))
	}
}

// ParseError is returned by Parse when a document cannot be read or
// tokenized. It carries an ErrorKind so callers can dispatch on the
// taxonomy without string matching.
type ParseError struct {
	Kind   ErrorKind
	Path   string
	Offset int64
	Detail string
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("node: %s at %s (offset %d): %s", e.Kind, e.Path, e.Offset, e.Detail)
	}
	return fmt.Sprintf("node: %s: %s", e.Kind, e.Detail)
}

// IsErrorKind reports whether err is a *ParseError with the given kind.
func IsErrorKind(err error, kind ErrorKind) bool {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}

// Sentinel errors for conditions that aren't tied to a specific parse
// location.
var (
	// ErrNotAnObject is returned when a parsed document's outermost value isn't an Object.
	ErrNotAnObject = errors.New("node: outermost value must be an object")

	// ErrDuplicateKey is returned when a parsed object contains two entries with the same key.
	ErrDuplicateKey = errors.New("node: duplicate key in object")
)
