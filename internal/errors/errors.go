// Package errors provides consolidated error definitions for tagwatch.
//
// This package provides:
// - Sentinel errors for all error conditions
// - Error category checking functions
// - Error wrapping utilities and contextual constructors
package errors

import (
	"errors"
	"fmt"
)

// ============================================================================
// Sentinel errors for common conditions
// ============================================================================

var (
	// Not found errors
	ErrNotFound      = errors.New("not found")
	ErrRuleNotFound  = errors.New("rule not found")
	ErrEventNotFound = errors.New("event not found")
	ErrTagNotFound   = errors.New("tag not found")

	// Already exists errors
	ErrAlreadyExists = errors.New("already exists")

	// Validation errors
	ErrMissingField    = errors.New("missing required field")
	ErrInvalidValue    = errors.New("invalid value")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrUnknownOperator = errors.New("unknown operator")

	// Query errors
	ErrInvalidRange = errors.New("invalid time range")

	// Internal errors
	ErrInternal = errors.New("internal error")
	ErrDatabase = errors.New("database error")
	ErrClosed   = errors.New("already closed")
)

// ============================================================================
// Helper functions for error checking
// ============================================================================

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// As is a convenience wrapper for errors.As
var As = errors.As

// IsNotFound returns true if err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrRuleNotFound) ||
		errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrTagNotFound)
}

// IsValidation returns true if err is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrInvalidValue) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrUnknownOperator)
}

// IsInvalidRange returns true if err is a query range error.
func IsInvalidRange(err error) bool {
	return errors.Is(err, ErrInvalidRange)
}

// ============================================================================
// Error wrapping utilities
// ============================================================================

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ============================================================================
// Error constructors with context
// ============================================================================

// NewNotFound creates a not-found error with context.
func NewNotFound(entityType, identifier string) error {
	return fmt.Errorf("%s '%s': %w", entityType, identifier, ErrNotFound)
}

// NewAlreadyExists creates an already-exists error with context.
func NewAlreadyExists(entityType, identifier string) error {
	return fmt.Errorf("%s '%s': %w", entityType, identifier, ErrAlreadyExists)
}

// NewRuleNotFound creates a rule-not-found error.
func NewRuleNotFound(id string) error {
	return fmt.Errorf("rule '%s': %w", id, ErrRuleNotFound)
}

// NewEventNotFound creates an event-not-found error.
func NewEventNotFound(id int64) error {
	return fmt.Errorf("event %d: %w", id, ErrEventNotFound)
}

// NewMissingField creates a missing field error.
func NewMissingField(field string) error {
	return fmt.Errorf("%s: %w", field, ErrMissingField)
}

// NewInvalidValue creates an invalid value error.
func NewInvalidValue(field string, value interface{}, reason string) error {
	return fmt.Errorf("invalid %s '%v': %s: %w", field, value, reason, ErrInvalidValue)
}

// NewInvalidRange creates a query range error.
func NewInvalidRange(startMs, endMs int64) error {
	return fmt.Errorf("start %d, end %d: %w", startMs, endMs, ErrInvalidRange)
}
