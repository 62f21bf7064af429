package gir

import (
	"errors"
	"fmt"
)

// RuntimeError represents an operational error that should lead to exit code 2
// Examples include provisioning failures, install failures, configuration errors, etc.
type RuntimeError struct {
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %v", e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// NewRuntimeError creates a new RuntimeError
func NewRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Err: err}
}

// IsRuntimeError checks if the error is or wraps a RuntimeError
func IsRuntimeError(err error) bool {
	var runtimeErr *RuntimeError
	return err != nil && errors.As(err, &runtimeErr)
}

// GuideFailureError represents a failing guide script (exit code 1)
type GuideFailureError struct {
	Message string
}

func (e *GuideFailureError) Error() string {
	return fmt.Sprintf("guide failure: %s", e.Message)
}

// NewGuideFailureError creates a new GuideFailureError
func NewGuideFailureError(message string) *GuideFailureError {
	return &GuideFailureError{Message: message}
}

// IsGuideFailureError checks if the error is or wraps a GuideFailureError
func IsGuideFailureError(err error) bool {
	var guideErr *GuideFailureError
	return err != nil && errors.As(err, &guideErr)
}
