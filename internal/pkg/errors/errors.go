package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	CodeInternal      = "INTERNAL_ERROR"
	CodeNotFound      = "NOT_FOUND"
	CodeValidation    = "VALIDATION_ERROR"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeForbidden     = "FORBIDDEN"
	CodeConflict      = "CONFLICT"
	CodeRateLimited   = "RATE_LIMITED"
	CodeBadRequest    = "BAD_REQUEST"
	CodePrecondition  = "VALIDATION_PRECONDITION"
	CodeConfiguration = "CONFIGURATION_ERROR"
	CodeRemote        = "REMOTE_FAILURE"
	CodeSequence      = "SEQUENCE_ERROR"
	CodeNotReady      = "NOT_READY"
)

// AppError represents an application error with context
type AppError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	StatusCode int               `json:"-"`
	Err        error             `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a detail to the error
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithError wraps an underlying error
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// New creates a new AppError
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Internal creates an internal server error
func Internal(message string) *AppError {
	return New(CodeInternal, message, http.StatusInternalServerError)
}

// NotFound creates a not found error
func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// Validation creates a validation error
func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest)
}

// Unauthorized creates an unauthorized error
func Unauthorized(message string) *AppError {
	if message == "" {
		message = "unauthorized"
	}
	return New(CodeUnauthorized, message, http.StatusUnauthorized)
}

// Forbidden creates a forbidden error
func Forbidden(message string) *AppError {
	if message == "" {
		message = "forbidden"
	}
	return New(CodeForbidden, message, http.StatusForbidden)
}

// Conflict creates a conflict error
func Conflict(message string) *AppError {
	return New(CodeConflict, message, http.StatusConflict)
}

// RateLimited creates a rate limited error
func RateLimited() *AppError {
	return New(CodeRateLimited, "rate limit exceeded", http.StatusTooManyRequests)
}

// BadRequest creates a bad request error
func BadRequest(message string) *AppError {
	return New(CodeBadRequest, message, http.StatusBadRequest)
}

// Precondition creates an error for a validate call with incomplete inputs.
// No network call is made when this is returned.
func Precondition(message string) *AppError {
	return New(CodePrecondition, message, http.StatusUnprocessableEntity)
}

// Configuration creates an error for an unresolvable evaluation kind
func Configuration(message string) *AppError {
	return New(CodeConfiguration, message, http.StatusBadRequest)
}

// Remote creates an error for a scoring-service failure. The status code and
// response body (when present) are folded into the message.
func Remote(statusCode int, body string) *AppError {
	msg := fmt.Sprintf("scoring service returned status %d", statusCode)
	if body != "" {
		msg = fmt.Sprintf("%s: %s", msg, body)
	}
	return New(CodeRemote, msg, http.StatusBadGateway)
}

// RemoteTransport creates an error for a transport-level scoring failure
func RemoteTransport(err error) *AppError {
	return New(CodeRemote, fmt.Sprintf("scoring service unreachable: %v", err), http.StatusBadGateway).WithError(err)
}

// Sequence creates an error for an execute call without a validated session
func Sequence(message string) *AppError {
	return New(CodeSequence, message, http.StatusConflict)
}

// NotReady creates an error for selecting a candidate that is not in success state
func NotReady(candidateID string) *AppError {
	return New(CodeNotReady, fmt.Sprintf("candidate %s is not ready for selection", candidateID), http.StatusConflict)
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// IsAppError checks if the error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from error if present
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// GetStatusCode returns the HTTP status code for an error
func GetStatusCode(err error) int {
	if appErr := GetAppError(err); appErr != nil {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// HasCode checks whether the error carries the given application code
func HasCode(err error, code string) bool {
	if appErr := GetAppError(err); appErr != nil {
		return appErr.Code == code
	}
	return false
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// IsValidation checks if the error is a validation error
func IsValidation(err error) bool {
	return HasCode(err, CodeValidation)
}

// IsUnauthorized checks if the error is an unauthorized error
func IsUnauthorized(err error) bool {
	return HasCode(err, CodeUnauthorized)
}

// IsPrecondition checks if the error is a validate precondition failure
func IsPrecondition(err error) bool {
	return HasCode(err, CodePrecondition)
}

// IsConfiguration checks if the error is an unknown-kind configuration error
func IsConfiguration(err error) bool {
	return HasCode(err, CodeConfiguration)
}

// IsRemote checks if the error is a scoring-service failure
func IsRemote(err error) bool {
	return HasCode(err, CodeRemote)
}

// IsSequence checks if the error is an out-of-order execute call
func IsSequence(err error) bool {
	return HasCode(err, CodeSequence)
}

// IsNotReady checks if the error is a premature candidate selection
func IsNotReady(err error) bool {
	return HasCode(err, CodeNotReady)
}
