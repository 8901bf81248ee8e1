// Package cmn provides shared low-level types and utilities used across the
// library service: errors, correlation ids, checksums, and config.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package cmn

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind is the error taxonomy from the design's error-handling section:
// validation, authorization, conflict, not-found, limit-exceeded,
// transient-backend, and fatal. Every typed error propagated out of a
// component carries exactly one Kind so the request pipeline can map it
// to a status code in one place.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindAuthz
	KindConflict
	KindNotFound
	KindLimitExceeded
	KindTransient
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthz:
		return "authorization"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindLimitExceeded:
		return "limit_exceeded"
	case KindTransient:
		return "transient"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error is the concrete typed error every component surfaces. Details
// carries structured context (field name, existing entity id, remaining
// rate-limit capacity, ...) that callers may type-assert on; it is never
// required for correct propagation.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]interface{}
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is allows errors.Is(err, cmn.ErrNotFound) style checks by comparing
// against a sentinel *Error by Kind alone.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

func NewError(kind Kind, msg string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(msg, args...)}
}

func WrapError(kind Kind, cause error, msg string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(msg, args...), cause: pkgerrors.WithStack(cause)}
}

func (e *Error) WithDetail(key string, val interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{}, 2)
	}
	e.Details[key] = val
	return e
}

func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Sentinels for the kinds most often checked purely for control flow.
var (
	ErrNotFound      = NewError(KindNotFound, "not found")
	ErrConflict      = NewError(KindConflict, "conflict")
	ErrLimitExceeded = NewError(KindLimitExceeded, "limit exceeded")
	ErrAuthz         = NewError(KindAuthz, "insufficient permissions")
)
