package jwtauth

import (
	"errors"
	"fmt"
)

// ErrorCode represents an authentication error code
type ErrorCode string

const (
	ErrMissingToken             ErrorCode = "MISSING_TOKEN"
	ErrMalformed                ErrorCode = "MALFORMED"
	ErrInvalidSignature         ErrorCode = "INVALID_SIGNATURE"
	ErrExpired                  ErrorCode = "EXPIRED"
	ErrSubjectMismatch          ErrorCode = "SUBJECT_MISMATCH"
	ErrUnknownSubject           ErrorCode = "UNKNOWN_SUBJECT"
	ErrTransportFailure         ErrorCode = "TRANSPORT_FAILURE"
	ErrNoneAlgorithm            ErrorCode = "NONE_ALGORITHM"
	ErrUnsupportedAlgorithm     ErrorCode = "UNSUPPORTED_ALGORITHM"
	ErrMalformedAlgorithmHeader ErrorCode = "MALFORMED_ALGORITHM_HEADER"
	ErrConfigError              ErrorCode = "CONFIG_ERROR"
)

// ErrUnknownUser is returned by a CredentialStore when no principal exists
// for the requested username.
var ErrUnknownUser = errors.New("jwtauth: unknown user")

// ValidationError represents an authentication failure with a code and message
type ValidationError struct {
	Code     ErrorCode
	Message  string
	Internal error
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the error unwrapping interface
func (e *ValidationError) Unwrap() error {
	return e.Internal
}

// NewValidationError creates a new validation error
func NewValidationError(code ErrorCode, message string, internal error) *ValidationError {
	return &ValidationError{
		Code:     code,
		Message:  message,
		Internal: internal,
	}
}

// CodeOf returns the ErrorCode carried by err, looking through wrapping.
// Errors that are not validation errors report ErrTransportFailure.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return valErr.Code
	}
	return ErrTransportFailure
}
