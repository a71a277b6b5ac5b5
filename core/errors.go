package core

import (
	"errors"
	"fmt"
)

// ErrDetached is returned by Registry.Resolve when the registry no longer has
// a parser and the requested object was never cached.
var ErrDetached = errors.New("registry detached from its source")

// LexError reports a malformed or unterminated token.
type LexError struct {
	Offset int64
	Msg    string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at offset %d: %s", e.Offset, e.Msg)
}

// FormatError reports a grammar violation: a missing keyword or mandatory key,
// a mismatched object header, a truncated section, or a short stream.
type FormatError struct {
	Offset   int64
	Expected string
	Found    string
}

func (e *FormatError) Error() string {
	if e.Found == "" {
		return fmt.Sprintf("format error at offset %d: expected %s", e.Offset, e.Expected)
	}
	return fmt.Sprintf("format error at offset %d: expected %s, found %s", e.Offset, e.Expected, e.Found)
}

func formatErr(offset int64, expected, found string) *FormatError {
	return &FormatError{Offset: offset, Expected: expected, Found: found}
}

// MissingMandatoryKeyError reports that a dictionary lacks a key a typed
// accessor requires.
type MissingMandatoryKeyError struct {
	Key    string
	Offset int64
}

func (e *MissingMandatoryKeyError) Error() string {
	return fmt.Sprintf("missing mandatory key /%s in dictionary at offset %d", e.Key, e.Offset)
}

// UnsupportedNodeError reports a parse node kind that has no typed wrapper.
type UnsupportedNodeError struct {
	Kind   ObjectType
	Offset int64
}

func (e *UnsupportedNodeError) Error() string {
	return fmt.Sprintf("no wrapper for %s node at offset %d", e.Kind, e.Offset)
}
