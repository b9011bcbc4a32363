// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"errors"
	"fmt"
)

// Kind classifies a failed operation.
type Kind int

const (
	KindUnknown Kind = iota
	NotFound
	Validation
	IO
	ExternalTool
	Conflict
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Validation:
		return "validation"
	case IO:
		return "io"
	case ExternalTool:
		return "external_tool"
	case Conflict:
		return "conflict"
	}
	return "unknown"
}

// Error is returned by every Manager operation that fails.
type Error struct {
	Kind Kind
	Op   string // operation name, e.g. "createTab"
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Msg
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsNotFound reports whether err is a NotFound failure.
func IsNotFound(err error) bool { return KindOf(err) == NotFound }

func notFound(op, what, id string) *Error {
	return &Error{Kind: NotFound, Op: op, Msg: fmt.Sprintf("%s %q not found", what, id)}
}

func invalid(op, format string, args ...any) *Error {
	return &Error{Kind: Validation, Op: op, Msg: fmt.Sprintf(format, args...)}
}
