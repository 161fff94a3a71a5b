// Package apperror provides structured error handling for the query engine.
// All failures surfaced to callers must use AppError for consistent API responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error types partition the taxonomy surfaced in API payloads.
const (
	TypeValidation = "validation"
	TypePagination = "pagination"
	TypeQuery      = "query"
	TypeAuth       = "auth"
	TypeInternal   = "internal"
)

// Error codes, grouped by taxonomy type
const (
	// Validation errors (400)
	CodeValidation         = "VALIDATION_ERROR"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeMissingField       = "MISSING_FIELD"
	CodeMissingValue       = "MISSING_VALUE"
	CodeInvalidOperator    = "INVALID_OPERATOR"
	CodeOperatorNotAllowed = "OPERATOR_NOT_ALLOWED"
	CodeFieldNotAllowed    = "FIELD_NOT_ALLOWED"
	CodeInvalidValue       = "INVALID_VALUE"
	CodeTransformFailed    = "TRANSFORM_FAILED"
	CodeMissingColumn      = "MISSING_COLUMN"
	CodeInvalidSortOrder   = "INVALID_SORT_ORDER"
	CodeInvalidNulls       = "INVALID_NULLS_PLACEMENT"
	CodeColumnNotSortable  = "COLUMN_NOT_SORTABLE"
	CodeMissingRelation    = "MISSING_RELATION"
	CodeUnknownRelation    = "UNKNOWN_RELATION"
	CodeEmptyGroup         = "EMPTY_FILTER_GROUP"

	// Pagination errors (400)
	CodeInvalidPage           = "INVALID_PAGE"
	CodeInvalidPageSize       = "INVALID_PAGE_SIZE"
	CodeInvalidOffset         = "INVALID_OFFSET"
	CodeInvalidLimit          = "INVALID_LIMIT"
	CodeConflictingPagination = "CONFLICTING_PAGINATION_MODE"
	CodePageOutOfRange        = "PAGE_OUT_OF_RANGE"
	CodeOffsetDisabled        = "OFFSET_PAGINATION_DISABLED"

	// Query execution errors (5xx)
	CodeFilterCompile = "FILTER_COMPILE_FAILED"
	CodeSortCompile   = "SORT_COMPILE_FAILED"
	CodeJoinBuild     = "JOIN_BUILD_FAILED"
	CodeFindAll       = "FIND_ALL_FAILED"
	CodeFindAndCount  = "FIND_AND_COUNT_FAILED"
	CodeCount         = "COUNT_FAILED"
	CodeCreate        = "CREATE_FAILED"
	CodeUpdate        = "UPDATE_FAILED"
	CodeDestroy       = "DESTROY_FAILED"

	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"
	CodeTimeout  = "TIMEOUT_ERROR"

	// Authorization errors (401)
	CodeUnauthorized = "UNAUTHORIZED"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"
)

// AppError is the standard error type for the engine.
// It implements the error interface and provides structured details for API responses.
type AppError struct {
	// Type partitions errors into the coarse taxonomy (validation, pagination, query)
	Type string `json:"type"`

	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Field names the offending input field, when one can be identified
	Field string `json:"field,omitempty"`

	// Value carries the offending input value, when safe to echo back
	Value any `json:"value,omitempty"`

	// Details contains additional context (operator tables, bounds, etc.)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithField records the offending input field
func (e *AppError) WithField(field string) *AppError {
	e.Field = field
	return e
}

// WithValue records the offending input value
func (e *AppError) WithValue(value any) *AppError {
	e.Value = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions for common errors ---

// NewValidation creates a validation error (400)
func NewValidation(code, message string) *AppError {
	return &AppError{
		Type:       TypeValidation,
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewPagination creates a pagination error (400)
func NewPagination(code, message string) *AppError {
	return &AppError{
		Type:       TypePagination,
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewQuery wraps a compilation or record-store failure under a stable code (500)
func NewQuery(code, message string, cause error) *AppError {
	return &AppError{
		Type:       TypeQuery,
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        cause,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Type:       TypeQuery,
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Type:       TypeInternal,
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewUnauthorized creates an authentication error (401)
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Type:       TypeAuth,
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == CodeNotFound
	}
	return false
}

// IsValidation checks if error belongs to the validation taxonomy
func IsValidation(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Type == TypeValidation || appErr.Type == TypePagination
	}
	return false
}
