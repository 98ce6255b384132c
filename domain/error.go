// Package domain defines error types for the catalog.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ProductNotFoundError is returned when a mutation targets an unknown product
type ProductNotFoundError struct {
	ProductID string
}

// Error implements the error interface for ProductNotFoundError
func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found: id=%s", e.ProductID)
}

// Is allows proper error type checking with errors.Is()
func (e *ProductNotFoundError) Is(target error) bool {
	_, ok := target.(*ProductNotFoundError)
	return ok
}

// InvalidProductError is returned when a single value (typically a filter) is rejected
type InvalidProductError struct {
	Field  string
	Reason string
	Value  interface{}
}

// Error implements the error interface for InvalidProductError
func (e *InvalidProductError) Error() string {
	return fmt.Sprintf("invalid product: field=%s, reason=%s, value=%v", e.Field, e.Reason, e.Value)
}

// Is allows proper error type checking with errors.Is()
func (e *InvalidProductError) Is(target error) bool {
	_, ok := target.(*InvalidProductError)
	return ok
}

// ValidationFailedError carries every invalid field of a submitted form.
type ValidationFailedError struct {
	Errors []ValidationError
}

// Error implements the error interface for ValidationFailedError
func (e *ValidationFailedError) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		fields = append(fields, fe.Field)
	}
	return fmt.Sprintf("validation failed: fields=%s", strings.Join(fields, ","))
}

// Is allows proper error type checking with errors.Is()
func (e *ValidationFailedError) Is(target error) bool {
	_, ok := target.(*ValidationFailedError)
	return ok
}

// SourceUnavailableError is returned when no data source produced a collection
type SourceUnavailableError struct {
	Cause error
}

// Error implements the error interface for SourceUnavailableError
func (e *SourceUnavailableError) Error() string {
	if e.Cause == nil {
		return "no product source available"
	}
	return fmt.Sprintf("no product source available: %v", e.Cause)
}

// Unwrap exposes the last source failure.
func (e *SourceUnavailableError) Unwrap() error { return e.Cause }

// Is allows proper error type checking with errors.Is()
func (e *SourceUnavailableError) Is(target error) bool {
	_, ok := target.(*SourceUnavailableError)
	return ok
}

// PersistenceError records a failed durable write. It is informational:
// the in-memory mutation that triggered the write has already been applied.
type PersistenceError struct {
	Key   string
	Cause error
}

// Error implements the error interface for PersistenceError
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Key, e.Cause)
}

// Unwrap exposes the backend error.
func (e *PersistenceError) Unwrap() error { return e.Cause }

// Is allows proper error type checking with errors.Is()
func (e *PersistenceError) Is(target error) bool {
	_, ok := target.(*PersistenceError)
	return ok
}

// Helper functions for creating errors with context

// NewProductNotFoundError creates a new ProductNotFoundError
func NewProductNotFoundError(productID string) error {
	return &ProductNotFoundError{ProductID: productID}
}

// NewInvalidProductError creates a new InvalidProductError
func NewInvalidProductError(field, reason string, value interface{}) error {
	return &InvalidProductError{
		Field:  field,
		Reason: reason,
		Value:  value,
	}
}

// NewValidationFailedError wraps the errors of a failed ValidationResult
func NewValidationFailedError(errs []ValidationError) error {
	return &ValidationFailedError{Errors: append([]ValidationError(nil), errs...)}
}

// NewSourceUnavailableError creates a new SourceUnavailableError
func NewSourceUnavailableError(cause error) error {
	return &SourceUnavailableError{Cause: cause}
}

// NewPersistenceError creates a new PersistenceError
func NewPersistenceError(key string, cause error) error {
	return &PersistenceError{Key: key, Cause: cause}
}

// Type assertion helpers for use with errors.As()

// IsProductNotFoundError checks if an error is a ProductNotFoundError
func IsProductNotFoundError(err error) bool {
	var pnf *ProductNotFoundError
	return errors.As(err, &pnf)
}

// IsInvalidProductError checks if an error is an InvalidProductError
func IsInvalidProductError(err error) bool {
	var ipe *InvalidProductError
	return errors.As(err, &ipe)
}

// IsValidationFailedError checks if an error is a ValidationFailedError
func IsValidationFailedError(err error) bool {
	var vfe *ValidationFailedError
	return errors.As(err, &vfe)
}

// IsSourceUnavailableError checks if an error is a SourceUnavailableError
func IsSourceUnavailableError(err error) bool {
	var sue *SourceUnavailableError
	return errors.As(err, &sue)
}

// IsPersistenceError checks if an error is a PersistenceError
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
