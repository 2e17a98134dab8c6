package model

import (
	"errors"
	"fmt"
)

// Common errors used across the application
var (
	// Account errors
	ErrAccountNotFound   = errors.New("account not found")
	ErrDuplicateUsername = errors.New("username already exists")

	// Input errors
	ErrValidation = errors.New("validation failed")

	// Persistence errors
	ErrStorage = errors.New("storage failure")
)

// ValidationError describes malformed or missing input, caught before any storage access
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a ValidationError for the given field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StorageError wraps an underlying persistence failure (I/O, corruption, driver errors)
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError wraps err as a StorageError for the named operation
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrStorage) match any StorageError
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}
