/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("person", "42")

	expected := `person with key "42" not found`
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}

	if !errors.Is(err, ErrNotFound) {
		t.Error("NotFoundError should match ErrNotFound")
	}

	if !IsNotFound(err) {
		t.Error("IsNotFound should return true for NotFoundError")
	}
}

func TestAlreadyExistsError(t *testing.T) {
	err := NewAlreadyExistsError("person", "0")

	expected := `person with key "0" already exists`
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}

	if !IsAlreadyExists(err) {
		t.Error("IsAlreadyExists should return true for AlreadyExistsError")
	}
	if IsNotFound(err) {
		t.Error("AlreadyExistsError should not match ErrNotFound")
	}
}

func TestValidationError(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		message  string
		expected string
	}{
		{
			name:     "with field",
			field:    "id",
			message:  "identifier is required",
			expected: `validation failed for field "id": identifier is required`,
		},
		{
			name:     "without field",
			field:    "",
			message:  "unsupported operator",
			expected: "validation failed: unsupported operator",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewValidationError(tt.field, tt.message)

			if err.Error() != tt.expected {
				t.Errorf("Expected error message %q, got %q", tt.expected, err.Error())
			}
			if !IsValidationError(err) {
				t.Error("IsValidationError should return true for ValidationError")
			}
		})
	}
}

func TestIndexPendingError(t *testing.T) {
	err := NewIndexPendingError("person", 250*time.Millisecond)

	if !IsIndexPending(err) {
		t.Error("IndexPendingError should match ErrIndexPending")
	}
	expected := `index for "person" may be stale: last mutation 250ms ago`
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
}

func TestBatchError(t *testing.T) {
	err := &BatchError{
		Op: "create",
		Failures: []ItemError{
			{Index: 1, ID: "0", Err: NewAlreadyExistsError("person", "0")},
		},
	}

	if !IsAlreadyExists(err) {
		t.Error("BatchError should unwrap to its item errors")
	}
	if IsValidationError(err) {
		t.Error("BatchError should not match unrelated sentinels")
	}

	wrapped := fmt.Errorf("bulk: %w", err)
	be, ok := AsBatchError(wrapped)
	if !ok {
		t.Fatal("AsBatchError should find a wrapped BatchError")
	}
	if len(be.Failures) != 1 || be.Failures[0].Index != 1 {
		t.Errorf("unexpected failures: %+v", be.Failures)
	}
}

func TestErrorWrapping(t *testing.T) {
	original := NewNotFoundError("person", "123")
	wrapped := fmt.Errorf("store operation failed: %w", original)

	if !IsNotFound(wrapped) {
		t.Error("IsNotFound should work with wrapped errors")
	}

	unknown := NewUnknownModelError("ghost")
	if !errors.Is(unknown, ErrUnknownModel) || !IsUnknownModel(unknown) {
		t.Error("unknown model error should match ErrUnknownModel")
	}
}

func TestSentinelErrors(t *testing.T) {
	sentinels := []error{
		ErrNotFound,
		ErrAlreadyExists,
		ErrInvalidInput,
		ErrIndexPending,
		ErrUnknownModel,
	}

	for i, err1 := range sentinels {
		for j, err2 := range sentinels {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("Sentinel errors should be distinct: %v matches %v", err1, err2)
			}
		}
	}
}
