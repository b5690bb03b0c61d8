/*
NAME
  perr.go

DESCRIPTION
  perr provides the fixed error taxonomy used across the pollux decode/encode
  pipeline. Every failure that crosses a package boundary is reported as a
  *perr.Error carrying one of the Kinds below, so that callers can react to
  categories of failure (timeout, not-init, stream-end, ...) rather than
  string-matching.

AUTHORS
  pollux contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package perr provides the fixed error taxonomy for the pollux pipeline.
package perr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is one of the fixed error categories a pollux operation can report.
type Kind int

// The fixed error taxonomy, as enumerated in the pollux error handling design.
const (
	OK Kind = iota
	Timeout
	NullPointer
	Args
	Entry
	InitRepeated
	NotInit
	MemoryAlloc
	CacheOverflow
	ResourceAlloc
	ResourceFree
	FileOpen
	FileWrite
	FileRead
	StreamEnd
	StreamFlush
)

var kindNames = map[Kind]string{
	OK:            "ok",
	Timeout:       "timeout",
	NullPointer:   "null_pointer",
	Args:          "args",
	Entry:         "entry",
	InitRepeated:  "init_repeated",
	NotInit:       "not_init",
	MemoryAlloc:   "memory_alloc",
	CacheOverflow: "cache_overflow",
	ResourceAlloc: "resource_alloc",
	ResourceFree:  "resource_free",
	FileOpen:      "file_open",
	FileWrite:     "file_write",
	FileRead:      "file_read",
	StreamEnd:     "stream_end",
	StreamFlush:   "stream_flush",
}

// String returns the canonical lower_snake_case name for k.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the concrete error type returned by pollux operations. It always
// carries a Kind; Func names the operation that failed and Backend, when
// non-empty, is the backend's own formatted error string.
type Error struct {
	Kind    Kind
	Func    string
	Backend string
	cause   error
}

func (e *Error) Error() string {
	switch {
	case e.Backend != "" && e.cause != nil:
		return fmt.Sprintf("%s: %s: %s: %v", e.Func, e.Kind, e.Backend, e.cause)
	case e.Backend != "":
		return fmt.Sprintf("%s: %s: %s", e.Func, e.Kind, e.Backend)
	case e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.Func, e.Kind, e.cause)
	default:
		return fmt.Sprintf("%s: %s", e.Func, e.Kind)
	}
}

// Unwrap allows errors.Is/errors.As to see through to the wrapped cause.
func (e *Error) Unwrap() error { return e.cause }

// New returns a new *Error of the given kind, attributed to func name fn.
func New(kind Kind, fn string) *Error {
	return &Error{Kind: kind, Func: fn}
}

// Wrap returns a new *Error of the given kind wrapping cause, attributed to
// func name fn.
func Wrap(kind Kind, fn string, cause error) *Error {
	return &Error{Kind: kind, Func: fn, cause: errors.Wrap(cause, fn)}
}

// WrapBackend returns a new *Error reporting a backend failure: kind, the
// function that invoked the backend, and the backend's own error string
// (e.g. the result of av_strerror).
func WrapBackend(kind Kind, fn, backendErr string) *Error {
	return &Error{Kind: kind, Func: fn, Backend: backendErr}
}

// Is reports whether err is a *Error of kind k.
func Is(err error, k Kind) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind == k
	}
	return false
}

// KindOf returns the Kind carried by err, or OK if err is nil, or Entry if
// err is a non-pollux error (a bug in the caller of this function: all
// pollux call paths are expected to return *Error).
func KindOf(err error) Kind {
	if err == nil {
		return OK
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return Entry
}

// MultiError collects more than one validation failure, mirroring the
// accumulate-then-report pattern used for device configuration validation.
type MultiError []error

func (m MultiError) Error() string {
	if len(m) == 0 {
		return "no errors"
	}
	s := m[0].Error()
	for _, e := range m[1:] {
		s += "; " + e.Error()
	}
	return s
}

// Append adds err to m if err is non-nil, returning the resulting MultiError.
func (m MultiError) Append(err error) MultiError {
	if err == nil {
		return m
	}
	return append(m, err)
}

// ErrOrNil returns m as an error, or nil if m is empty.
func (m MultiError) ErrOrNil() error {
	if len(m) == 0 {
		return nil
	}
	return m
}
