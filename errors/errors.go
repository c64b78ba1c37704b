/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Common sentinel errors
var (
	// ErrNotFound is returned by backends when a key does not resolve.
	// Public read and remove operations never surface it.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists is returned when a create collides with an existing identifier
	ErrAlreadyExists = errors.New("record already exists")

	// ErrInvalidInput is returned when an argument or filter fails validation
	ErrInvalidInput = errors.New("invalid input")

	// ErrIndexPending is returned when an indexed query is rejected because
	// the secondary index may not reflect recent key-path mutations
	ErrIndexPending = errors.New("secondary index not caught up")

	// ErrUnknownModel is returned when no schema is registered for a model name
	ErrUnknownModel = errors.New("no schema registered for model")
)

// NotFoundError represents an error when a record is not found
type NotFoundError struct {
	Type string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with key %q not found", e.Type, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// AlreadyExistsError represents a duplicate identifier on create
type AlreadyExistsError struct {
	Type string
	Key  string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s with key %q already exists", e.Type, e.Key)
}

func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// ValidationError represents an input validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// IndexPendingError reports a collection whose last key-path mutation is
// younger than the configured index lag.
type IndexPendingError struct {
	Collection string
	Since      time.Duration
}

func (e *IndexPendingError) Error() string {
	return fmt.Sprintf("index for %q may be stale: last mutation %s ago", e.Collection, e.Since.Round(time.Millisecond))
}

func (e *IndexPendingError) Is(target error) bool {
	return target == ErrIndexPending
}

// ItemError ties a per-item failure to its position and identifier in a batch
type ItemError struct {
	Index int
	ID    string
	Err   error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("item %d (%q): %v", e.Index, e.ID, e.Err)
}

func (e ItemError) Unwrap() error {
	return e.Err
}

// BatchError collects the per-item failures of a bulk operation that
// otherwise completed. It unwraps to every item error.
type BatchError struct {
	Op       string
	Failures []ItemError
}

func (e *BatchError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Error())
	}
	return fmt.Sprintf("%s: %d item(s) failed: %s", e.Op, len(e.Failures), strings.Join(parts, "; "))
}

func (e *BatchError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f)
	}
	return errs
}

// Helper functions for creating errors

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(recordType, key string) error {
	return &NotFoundError{Type: recordType, Key: key}
}

// NewAlreadyExistsError creates a new AlreadyExistsError
func NewAlreadyExistsError(recordType, key string) error {
	return &AlreadyExistsError{Type: recordType, Key: key}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewIndexPendingError creates a new IndexPendingError
func NewIndexPendingError(collection string, since time.Duration) error {
	return &IndexPendingError{Collection: collection, Since: since}
}

// NewUnknownModelError wraps ErrUnknownModel with the model name
func NewUnknownModelError(model string) error {
	return fmt.Errorf("%w: %q", ErrUnknownModel, model)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsIndexPending checks if an error is a stale index rejection
func IsIndexPending(err error) bool {
	return errors.Is(err, ErrIndexPending)
}

// IsUnknownModel checks if an error names an unregistered model
func IsUnknownModel(err error) bool {
	return errors.Is(err, ErrUnknownModel)
}

// AsBatchError extracts a BatchError from err
func AsBatchError(err error) (*BatchError, bool) {
	var be *BatchError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
