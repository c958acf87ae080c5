// Package errors provides the structured error system for the fabric core,
// with stable error codes, categories, and retryability hints.
package errors

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents a structured error code for fabric operations.
type ErrorCode string

const (
	// Lookup errors
	ErrCodeObjectNotFound    ErrorCode = "OBJECT_NOT_FOUND"
	ErrCodeMigrationNotFound ErrorCode = "MIGRATION_NOT_FOUND"

	// Admission errors
	ErrCodeAlreadyInProgress ErrorCode = "ALREADY_IN_PROGRESS"
	ErrCodeCapacityExceeded  ErrorCode = "CAPACITY_EXCEEDED"

	// Transfer and state errors
	ErrCodeTransferFailure ErrorCode = "TRANSFER_FAILURE"
	ErrCodeInvalidRetry    ErrorCode = "INVALID_RETRY"
	ErrCodeInvalidState    ErrorCode = "INVALID_STATE"

	// Input and configuration errors
	ErrCodeInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"

	// Internal errors
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// ErrorCategory represents the general category of an error.
type ErrorCategory string

const (
	CategoryLookup    ErrorCategory = "lookup"
	CategoryAdmission ErrorCategory = "admission"
	CategoryTransfer  ErrorCategory = "transfer"
	CategoryInput     ErrorCategory = "input"
	CategoryInternal  ErrorCategory = "internal"
)

// FabricError represents a structured error with context and metadata.
type FabricError struct {
	Code     ErrorCode              `json:"code"`
	Category ErrorCategory          `json:"category"`
	Message  string                 `json:"message"`
	Details  map[string]interface{} `json:"details,omitempty"`

	Cause     error     `json:"-"` // Not serialized to avoid circular refs
	Timestamp time.Time `json:"timestamp"`

	Component string `json:"component,omitempty"`
	Operation string `json:"operation,omitempty"`

	// Retryable marks transient conditions the caller may retry later.
	Retryable bool `json:"retryable"`
}

// Error implements the error interface.
func (e *FabricError) Error() string {
	if e.Component != "" {
		if e.Operation != "" {
			return fmt.Sprintf("[%s:%s] %s: %s", e.Component, e.Operation, e.Code, e.Message)
		}
		return fmt.Sprintf("[%s] %s: %s", e.Component, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for error wrapping compatibility.
func (e *FabricError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error (for errors.Is compatibility).
func (e *FabricError) Is(target error) bool {
	if fe, ok := target.(*FabricError); ok {
		return e.Code == fe.Code
	}
	return false
}

// String returns a detailed string representation for logging.
func (e *FabricError) String() string {
	parts := []string{
		fmt.Sprintf("Code=%s", e.Code),
		fmt.Sprintf("Category=%s", e.Category),
		fmt.Sprintf("Message=%q", e.Message),
	}
	if e.Component != "" {
		parts = append(parts, fmt.Sprintf("Component=%s", e.Component))
	}
	if e.Operation != "" {
		parts = append(parts, fmt.Sprintf("Operation=%s", e.Operation))
	}
	if e.Retryable {
		parts = append(parts, "Retryable=true")
	}
	if len(e.Details) > 0 {
		details, _ := json.Marshal(e.Details)
		parts = append(parts, fmt.Sprintf("Details=%s", details))
	}
	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("Cause=%q", e.Cause.Error()))
	}
	return fmt.Sprintf("FabricError{%s}", strings.Join(parts, ", "))
}

// NewError creates a new fabric error with default values.
func NewError(code ErrorCode, message string) *FabricError {
	return &FabricError{
		Code:      code,
		Category:  GetCategory(code),
		Message:   message,
		Timestamp: time.Now(),
		Retryable: IsRetryableByDefault(code),
	}
}

// Newf creates a new fabric error with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *FabricError {
	return NewError(code, fmt.Sprintf(format, args...))
}

// GetCategory determines the category based on the error code.
func GetCategory(code ErrorCode) ErrorCategory {
	switch code {
	case ErrCodeObjectNotFound, ErrCodeMigrationNotFound:
		return CategoryLookup
	case ErrCodeAlreadyInProgress, ErrCodeCapacityExceeded:
		return CategoryAdmission
	case ErrCodeTransferFailure, ErrCodeInvalidRetry, ErrCodeInvalidState:
		return CategoryTransfer
	case ErrCodeInvalidInput, ErrCodeInvalidConfig:
		return CategoryInput
	default:
		return CategoryInternal
	}
}

// IsRetryableByDefault determines if an error is retryable by default.
// CAPACITY_EXCEEDED is the one transient condition in the core: the caller
// is expected to retry once a worker slot frees up.
func IsRetryableByDefault(code ErrorCode) bool {
	return code == ErrCodeCapacityExceeded
}

// WithDetail adds detailed information to an error.
func (e *FabricError) WithDetail(key string, value interface{}) *FabricError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithComponent sets the component for an error.
func (e *FabricError) WithComponent(component string) *FabricError {
	e.Component = component
	return e
}

// WithOperation sets the operation for an error.
func (e *FabricError) WithOperation(operation string) *FabricError {
	e.Operation = operation
	return e
}

// WithCause sets the underlying cause.
func (e *FabricError) WithCause(cause error) *FabricError {
	e.Cause = cause
	return e
}

// CodeOf extracts the error code from err, or ErrCodeInternalError when err
// is not a FabricError.
func CodeOf(err error) ErrorCode {
	if fe, ok := err.(*FabricError); ok {
		return fe.Code
	}
	return ErrCodeInternalError
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	fe, ok := err.(*FabricError)
	return ok && fe.Code == code
}

// IsRetryable reports whether err is marked as a transient condition.
func IsRetryable(err error) bool {
	fe, ok := err.(*FabricError)
	return ok && fe.Retryable
}
