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
	Err     error // underlying error for wrapping
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

// Is lets errors.Is match two domain errors by code, so a wrapped
// predefined error still matches its sentinel.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if errors.As(target, &other) {
		return e.Code == other.Code
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
		Err:     err,
	}
}

// Predefined domain errors
var (
	// Registration / identity
	ErrEmailExists        = NewDomainError("EMAIL_EXISTS", "email already in use")
	ErrInvalidCredentials = NewDomainError("INVALID_CREDENTIALS", "invalid credentials")
	ErrEmailNotConfirmed  = NewDomainError("EMAIL_NOT_CONFIRMED", "email must be confirmed before login")
	ErrUserNotFound       = NewDomainError("USER_NOT_FOUND", "user not found")

	// One-time tokens
	ErrInvalidConfirmToken = NewDomainError("INVALID_CONFIRM_TOKEN", "invalid or expired confirmation token")
	ErrInvalidResetToken   = NewDomainError("INVALID_RESET_TOKEN", "invalid or expired reset token")

	// Session tokens
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "unauthorized")
	ErrInvalidToken        = NewDomainError("INVALID_TOKEN", "invalid or expired token")
	ErrInvalidRefreshToken = NewDomainError("INVALID_REFRESH_TOKEN", "invalid refresh token")
	ErrInvalidIdentity     = NewDomainError("INVALID_IDENTITY_TOKEN", "invalid identity token")

	// Personas
	ErrPersonaNotFound = NewDomainError("PERSONA_NOT_FOUND", "persona not found")
	ErrPersonaQuota    = NewDomainError("PERSONA_QUOTA_EXCEEDED", "persona quota exceeded for subscription tier")
	ErrNotOwner        = NewDomainError("NOT_OWNER", "resource belongs to another user")

	// Validation
	ErrInvalidInput = NewDomainError("INVALID_INPUT", "invalid input")

	// Completion oracle / upstream
	ErrOracleBadOutput = NewDomainError("ORACLE_BAD_OUTPUT", "completion service returned unusable output")
	ErrOracleTimeout   = NewDomainError("ORACLE_TIMEOUT", "completion service timed out")
	ErrOracleFailure   = NewDomainError("ORACLE_FAILURE", "completion service request failed")

	// System errors
	ErrInternal = NewDomainError("INTERNAL_ERROR", "internal server error")
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

// ToHTTPStatus maps domain errors to HTTP status codes.
// This should only be used in the handler/presentation layer.
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
	// 400 Bad Request
	case "INVALID_INPUT", "INVALID_CONFIRM_TOKEN", "INVALID_RESET_TOKEN":
		return http.StatusBadRequest

	// 401 Unauthorized
	case "UNAUTHORIZED", "INVALID_CREDENTIALS", "INVALID_TOKEN",
		"INVALID_REFRESH_TOKEN", "INVALID_IDENTITY_TOKEN", "EMAIL_NOT_CONFIRMED":
		return http.StatusUnauthorized

	// 403 Forbidden
	case "PERSONA_QUOTA_EXCEEDED", "NOT_OWNER":
		return http.StatusForbidden

	// 404 Not Found
	case "USER_NOT_FOUND", "PERSONA_NOT_FOUND":
		return http.StatusNotFound

	// 409 Conflict
	case "EMAIL_EXISTS":
		return http.StatusConflict

	// Upstream completion failures are surfaced as gateway errors
	// rather than generic 500s
	case "ORACLE_BAD_OUTPUT", "ORACLE_FAILURE":
		return http.StatusBadGateway
	case "ORACLE_TIMEOUT":
		return http.StatusGatewayTimeout

	// 500 Internal Server Error (default)
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
