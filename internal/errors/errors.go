// Package errors defines the service error taxonomy and its HTTP mapping.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of service failure.
type Code string

const (
	CodeMissingParams      Code = "MISSING_PARAMS"
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeVerificationFailed Code = "VERIFICATION_FAILED"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeInvalidToken       Code = "INVALID_TOKEN"
	CodeTokenExpired       Code = "TOKEN_EXPIRED"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConflict           Code = "CONFLICT"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeUpstreamFailure    Code = "UPSTREAM_FAILURE"
	CodeInternal           Code = "INTERNAL"
)

// ServiceError carries a taxonomy code, a client-facing message and the HTTP
// status it maps to. Wrapped causes stay available through Unwrap.
type ServiceError struct {
	Code       Code
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	cause      error
}

func (e *ServiceError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.cause }

// WithDetails attaches a key/value pair for structured error bodies.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func newError(code Code, message string, status int, cause error) *ServiceError {
	return &ServiceError{Code: code, Message: message, HTTPStatus: status, cause: cause}
}

// MissingParams reports absent auth-adjacent request parameters.
func MissingParams(message string) *ServiceError {
	if message == "" {
		message = "Missing params"
	}
	return newError(CodeMissingParams, message, http.StatusUnauthorized, nil)
}

// InvalidInput reports malformed identifiers or field values.
func InvalidInput(message string) *ServiceError {
	return newError(CodeInvalidInput, message, http.StatusBadRequest, nil)
}

// VerificationFailed reports a signature that does not match the address.
func VerificationFailed(message string) *ServiceError {
	if message == "" {
		message = "Invalid Message"
	}
	return newError(CodeVerificationFailed, message, http.StatusNotFound, nil)
}

// Unauthorized reports a missing or rejected credential.
func Unauthorized(message string) *ServiceError {
	if message == "" {
		message = "unauthorized"
	}
	return newError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

// InvalidToken reports a capability token that failed signature or structure
// checks.
func InvalidToken(cause error) *ServiceError {
	return newError(CodeInvalidToken, "invalid token", http.StatusUnauthorized, cause)
}

// TokenExpired reports an elapsed expiry claim.
func TokenExpired(cause error) *ServiceError {
	return newError(CodeTokenExpired, "token expired", http.StatusUnauthorized, cause)
}

// NotFound reports an absent or soft-deleted resource.
func NotFound(message string) *ServiceError {
	if message == "" {
		message = "not found"
	}
	return newError(CodeNotFound, message, http.StatusNotFound, nil)
}

// Conflict reports a uniqueness violation.
func Conflict(message string) *ServiceError {
	return newError(CodeConflict, message, http.StatusConflict, nil)
}

// RateLimited reports a throttled request.
func RateLimited() *ServiceError {
	return newError(CodeRateLimited, "Too many requests", http.StatusTooManyRequests, nil)
}

// Upstream reports a collaborator service failure.
func Upstream(message string, cause error) *ServiceError {
	return newError(CodeUpstreamFailure, message, http.StatusInternalServerError, cause)
}

// Internal reports an unexpected failure.
func Internal(message string, cause error) *ServiceError {
	if message == "" {
		message = "internal error"
	}
	return newError(CodeInternal, message, http.StatusInternalServerError, cause)
}

// GetServiceError extracts a *ServiceError from err's chain, or nil.
func GetServiceError(err error) *ServiceError {
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	return nil
}

// HTTPStatus resolves the status code for any error, defaulting to 500.
func HTTPStatus(err error) int {
	if se := GetServiceError(err); se != nil {
		return se.HTTPStatus
	}
	return http.StatusInternalServerError
}
