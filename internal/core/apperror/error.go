// Package apperror provides structured error handling for the API.
// All business errors must use AppError for consistent responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"

	// Validation errors (400)
	CodeValidation  = "VALIDATION_ERROR"
	CodeInvalidData = "INVALID_DATA"

	// Form lifecycle and business rule violations (422)
	CodeAlreadyRejected       = "FORM_ALREADY_REJECTED"
	CodeAlreadyApproved       = "FORM_ALREADY_APPROVED"
	CodeAlreadyDone           = "FORM_ALREADY_DONE"
	CodeFormCancelled         = "FORM_CANCELLED"
	CodeInvalidTransition     = "INVALID_TRANSITION"
	CodeStockWouldGoNegative  = "STOCK_WOULD_GO_NEGATIVE"
	CodeInsufficientStock     = "INSUFFICIENT_STOCK"
	CodeSettingJournalMissing = "SETTING_JOURNAL_MISSING"
	CodeReasonRequired        = "REASON_REQUIRED"
	CodeOnlySmallestUnit      = "ONLY_SMALLEST_UNIT"
	CodeUnbalancedJournal     = "UNBALANCED_JOURNAL"

	// Authorization errors (401, 403)
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeConflict               = "CONFLICT"
	CodeDuplicate              = "DUPLICATE_ENTRY"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"

	// Rate limiting (429)
	CodeRateLimited = "RATE_LIMITED"
)

// AppError is the standard error type for the platform.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (form identity, quantities, etc.)
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

// WithMessage replaces the message, keeping code and status.
func (e *AppError) WithMessage(message string) *AppError {
	e.Message = message
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// FormRef identifies the form an error relates to.
type FormRef struct {
	Number string
	Status string
	Type   string
}

// WithForm attaches formNumber, formStatus and formType details.
func (e *AppError) WithForm(ref FormRef) *AppError {
	return e.WithDetail("formNumber", ref.Number).
		WithDetail("formStatus", ref.Status).
		WithDetail("formType", ref.Type)
}

// --- Factory functions ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewInvalidData creates the generic "Invalid data" error (400).
func NewInvalidData() *AppError {
	return &AppError{
		Code:       CodeInvalidData,
		Message:    "Invalid data",
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewBusinessRule creates a business rule violation error (422)
func NewBusinessRule(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewAlreadyRejected is returned when a rejected form is acted upon.
func NewAlreadyRejected(label string) *AppError {
	return NewBusinessRule(CodeAlreadyRejected, capitalize(label)+" already rejected")
}

// NewAlreadyApproved is returned when an approved form is rejected.
func NewAlreadyApproved(label string) *AppError {
	return NewBusinessRule(CodeAlreadyApproved, capitalize(label)+" already approved")
}

// NewStockWouldGoNegative creates the negative stock guard error.
func NewStockWouldGoNegative(message string, itemID any, current, quantity string) *AppError {
	return NewBusinessRule(CodeStockWouldGoNegative, message).
		WithDetail("itemId", itemID).
		WithDetail("currentStock", current).
		WithDetail("quantity", quantity)
}

// NewInsufficientStock creates a stock shortage error
func NewInsufficientStock(itemName string, requested, available string) *AppError {
	return &AppError{
		Code:       CodeInsufficientStock,
		Message:    fmt.Sprintf("Insufficient %s stock", itemName),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"requested": requested,
			"available": available,
		},
	}
}

// NewSettingJournalMissing is returned when a posting account is not configured.
func NewSettingJournalMissing(feature, name string) *AppError {
	return NewBusinessRule(
		CodeSettingJournalMissing,
		fmt.Sprintf("Journal %s account - %s not found", feature, name),
	).WithDetail("feature", feature).WithDetail("name", name)
}

// NewReasonRequired is returned for a cancellation request without reason.
func NewReasonRequired() *AppError {
	return NewBusinessRule(CodeReasonRequired, "reason cannot empty")
}

// NewOnlySmallestUnit is returned when a line uses a unit other than the base unit.
func NewOnlySmallestUnit() *AppError {
	return NewBusinessRule(CodeOnlySmallestUnit, "Only can use smallest item unit")
}

// NewConcurrentModification creates an optimistic locking error
func NewConcurrentModification(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeConcurrentModification,
		Message:    "Record was modified by another user. Please refresh and try again.",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewUnauthorized creates an authentication error (401)
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewForbidden creates an authorization error (403)
func NewForbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewConflict creates a conflict error (409)
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewRateLimited creates a too-many-requests error (429)
func NewRateLimited() *AppError {
	return &AppError{
		Code:       CodeRateLimited,
		Message:    "Too many requests",
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// NewDuplicate creates a duplicate entry error (409)
func NewDuplicate(entity, field, value string) *AppError {
	return &AppError{
		Code:       CodeDuplicate,
		Message:    fmt.Sprintf("%s with this %s already exists", entity, field),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "field": field, "value": value},
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

// HasCode reports whether err carries the given code.
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
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
	return HasCode(err, CodeNotFound)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if c := s[0]; c >= 'a' && c <= 'z' {
		return string(c-'a'+'A') + s[1:]
	}
	return s
}
