// Package mainmemory is the top-level API for wiring a runtime: domains,
// threads, the event dispatcher, and the partitioned hash table.
package mainmemory

import (
	"errors"
	"fmt"
)

// Severity classifies how a component's failure should be handled:
// Fatal aborts the process (allocator OOM), Operational is a caller-visible
// failure worth logging and surfacing, Recoverable is routine and expected
// to happen in normal operation (ring full, cas mismatch, not found).
type Severity string

const (
	SeverityFatal       Severity = "fatal"
	SeverityOperational Severity = "operational"
	SeverityRecoverable Severity = "recoverable"
)

// Error is the structured error every core component wraps failures in.
type Error struct {
	Op        string   // operation that failed (e.g. "table.insert", "ring.enqueue")
	Component string   // component identity (e.g. "partition-3", "thread-2")
	Severity  Severity
	Code      Code
	Msg       string
	Inner     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.Component != "" {
		parts = append(parts, fmt.Sprintf("component=%s", e.Component))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if len(parts) > 0 {
		return fmt.Sprintf("mainmemory: %s (%s)", msg, parts[0])
	}
	return fmt.Sprintf("mainmemory: %s", msg)
}

// Unwrap supports errors.Is/As against Inner.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is supports errors.Is comparison by Code.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}
	return false
}

// Code is a stable, comparable error category.
type Code string

const (
	CodeAllocatorOOM    Code = "allocator out of memory"
	CodeRingFull        Code = "ring full"
	CodeRingEmpty       Code = "ring empty"
	CodeNotFound        Code = "not found"
	CodeExists          Code = "cas mismatch"
	CodeCanceled        Code = "canceled"
	CodeTimeout         Code = "timeout"
	CodeInvalidArgument Code = "invalid argument"
)

// Recoverable sentinels: callers on hot paths check these directly (the
// teacher's style of a cheap comparable return value) rather than
// unwrapping a structured *Error.
var (
	ErrNotFound  = errors.New("mainmemory: not found")
	ErrExists    = errors.New("mainmemory: cas mismatch")
	ErrCanceled  = errors.New("mainmemory: canceled")
	ErrWouldBlock = errors.New("mainmemory: would block")
)

// NewError creates a structured error for op with the given severity/code.
func NewError(op string, severity Severity, code Code, msg string) *Error {
	return &Error{Op: op, Severity: severity, Code: code, Msg: msg}
}

// NewComponentError creates a structured error scoped to a named
// component (a partition index, a thread name, a domain name).
func NewComponentError(op, component string, severity Severity, code Code, msg string) *Error {
	return &Error{Op: op, Component: component, Severity: severity, Code: code, Msg: msg}
}

// WrapError wraps inner with operational context, preserving an existing
// structured error's code/severity if inner already is one.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}
	if e, ok := inner.(*Error); ok {
		return &Error{
			Op:        op,
			Component: e.Component,
			Severity:  e.Severity,
			Code:      e.Code,
			Msg:       e.Msg,
			Inner:     e.Inner,
		}
	}
	return &Error{Op: op, Severity: SeverityOperational, Msg: inner.Error(), Inner: inner}
}

// IsCode reports whether err is a *Error carrying code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsFatal reports whether err is a *Error whose severity is Fatal.
func IsFatal(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Severity == SeverityFatal
	}
	return false
}
