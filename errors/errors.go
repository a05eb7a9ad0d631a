// Package errors provides error handling for ontoforge.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - PII-safe error formatting
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Check errors
//	if errors.Is(err, errors.ErrNotFound) {
//	    // handle not found
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Assertions and panics
var (
	AssertionFailedf = crdb.AssertionFailedf
)

// Sentinel errors for the ontology core.
// Use these with errors.Is() for type-safe error checking.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrNotFound indicates a referenced entity or relationship id is absent
	ErrNotFound = New("not found")

	// ErrDuplicateID indicates an identity collision at insert
	ErrDuplicateID = New("duplicate id")

	// ErrInvariantViolation indicates a structural or semantic rule was broken
	ErrInvariantViolation = New("invariant violation")

	// ErrOrphanReference indicates a parent or endpoint not yet present in the container
	ErrOrphanReference = New("orphan reference")

	// ErrMergeConflict indicates two candidates disagree on a field beyond
	// the auto-resolution threshold and need an expert decision
	ErrMergeConflict = New("merge conflict")

	// ErrInvalidTransition indicates a review-state transition not allowed
	// by the state machine
	ErrInvalidTransition = New("invalid transition")
)

// IsNotFound checks if an error is or wraps ErrNotFound
func IsNotFound(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsDuplicateID checks if an error is or wraps ErrDuplicateID
func IsDuplicateID(err error) bool {
	return err != nil && Is(err, ErrDuplicateID)
}

// IsInvariantViolation checks if an error is or wraps ErrInvariantViolation
func IsInvariantViolation(err error) bool {
	return err != nil && Is(err, ErrInvariantViolation)
}

// IsOrphanReference checks if an error is or wraps ErrOrphanReference
func IsOrphanReference(err error) bool {
	return err != nil && Is(err, ErrOrphanReference)
}

// NewNotFound creates a not-found error with a formatted message
func NewNotFound(format string, args ...interface{}) error {
	return Wrap(ErrNotFound, Newf(format, args...).Error())
}

// NewInvariantViolation creates an invariant-violation error with a formatted message
func NewInvariantViolation(format string, args ...interface{}) error {
	return Wrap(ErrInvariantViolation, Newf(format, args...).Error())
}
