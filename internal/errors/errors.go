package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError represents a domain-specific error with a code and message
type DomainError struct {
	Code    string
	Message string
	Details []string // per-field messages surfaced in the envelope's errors list
	Err     error    // underlying error for wrapping
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is and errors.As
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches on Code so wrapped copies still compare equal to the sentinel.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with domain error context
func WrapError(domainErr *DomainError, err error) *DomainError {
	return &DomainError{
		Code:    domainErr.Code,
		Message: domainErr.Message,
		Details: domainErr.Details,
		Err:     err,
	}
}

// WithDetails copies domainErr and attaches the given messages.
func WithDetails(domainErr *DomainError, details []string) *DomainError {
	return &DomainError{
		Code:    domainErr.Code,
		Message: domainErr.Message,
		Details: details,
		Err:     domainErr.Err,
	}
}

// WithMessage copies domainErr with a different client-facing message.
func WithMessage(domainErr *DomainError, message string) *DomainError {
	return &DomainError{
		Code:    domainErr.Code,
		Message: message,
		Details: domainErr.Details,
		Err:     domainErr.Err,
	}
}

// Predefined domain errors
var (
	// User errors
	ErrUserNotFound       = NewDomainError("USER_NOT_FOUND", "User not found")
	ErrEmailExists        = NewDomainError("EMAIL_EXISTS", "User with this email already exists")
	ErrInvalidCredentials = NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")

	// Authentication errors
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "User not authenticated")
	ErrInvalidToken        = NewDomainError("INVALID_TOKEN", "Invalid token")
	ErrTokenExpired        = NewDomainError("TOKEN_EXPIRED", "Token expired")
	ErrInvalidRefreshToken = NewDomainError("INVALID_REFRESH_TOKEN", "Invalid refresh token")
	ErrRefreshTokenMissing = NewDomainError("REFRESH_TOKEN_MISSING", "Refresh token not found")

	// Validation errors
	ErrInvalidInput = NewDomainError("INVALID_INPUT", "Invalid input")
	ErrWeakPassword = NewDomainError("WEAK_PASSWORD", "Password does not meet requirements")

	// Account link and sync errors
	ErrAccountNotFound    = NewDomainError("ACCOUNT_NOT_FOUND", "Account not found")
	ErrPreconditionFailed = NewDomainError("PRECONDITION_FAILED", "Account has no provider access token")
	ErrUpstream           = NewDomainError("UPSTREAM_ERROR", "Financial data provider request failed")

	// System errors
	ErrInternal           = NewDomainError("INTERNAL_ERROR", "Internal server error")
	ErrServiceUnavailable = NewDomainError("SERVICE_UNAVAILABLE", "Service unavailable")
)

// IsDomainError checks if an error is a domain error
func IsDomainError(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr)
}

// GetDomainError extracts the domain error from an error
func GetDomainError(err error) *DomainError {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// ToHTTPStatus maps domain errors to HTTP status codes
// This should only be used in the handler/presentation layer
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErrorToHTTPStatus(domainErr)
	}

	return http.StatusInternalServerError
}

func domainErrorToHTTPStatus(err *DomainError) int {
	switch err.Code {
	case "INVALID_INPUT", "WEAK_PASSWORD":
		return http.StatusBadRequest

	case "UNAUTHORIZED", "INVALID_CREDENTIALS", "INVALID_TOKEN",
		"TOKEN_EXPIRED", "INVALID_REFRESH_TOKEN", "REFRESH_TOKEN_MISSING":
		return http.StatusUnauthorized

	case "USER_NOT_FOUND", "ACCOUNT_NOT_FOUND":
		return http.StatusNotFound

	case "EMAIL_EXISTS":
		return http.StatusConflict

	case "PRECONDITION_FAILED":
		return http.StatusPreconditionFailed

	case "UPSTREAM_ERROR":
		return http.StatusBadGateway

	case "SERVICE_UNAVAILABLE":
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetErrorMessage safely extracts error message
func GetErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}

	return err.Error()
}

// GetErrorDetails returns the per-field messages of a domain error, if any.
func GetErrorDetails(err error) []string {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Details
	}
	return nil
}
