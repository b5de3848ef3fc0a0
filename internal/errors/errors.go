// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies application errors.
type ErrorType string

const (
	// ErrorTypeValidation: an output or request failed schema/invariant checks.
	ErrorTypeValidation ErrorType = "validation_error"
	// ErrorTypePrecondition: a phase was invoked before its prerequisite was met.
	ErrorTypePrecondition ErrorType = "precondition_error"
	// ErrorTypeUpstreamParse: an external model returned unusable output.
	// Recovered internally by the deterministic fallback, never user-facing.
	ErrorTypeUpstreamParse ErrorType = "upstream_parse_error"
	// ErrorTypeNotification: outbound event delivery failed. Logged only.
	ErrorTypeNotification ErrorType = "notification_error"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeProcessing   ErrorType = "processing_error"
	ErrorTypeTimeout      ErrorType = "timeout"
)

// AppError carries a typed application error with a user-facing code.
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Code    string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError of the given type.
func NewAppError(errType ErrorType, message string, originalError error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     originalError,
		Code:    generateErrorCode(errType),
	}
}

// NewValidationError reports data that fails its schema or an invariant.
// The message must name the offending field and reason.
func NewValidationError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeValidation, message, originalError)
}

// NewPreconditionError reports an out-of-order phase call. The message must
// name the missing prerequisite.
func NewPreconditionError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypePrecondition, message, originalError)
}

// NewUpstreamParseError reports malformed output from an external model.
func NewUpstreamParseError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeUpstreamParse, message, originalError)
}

// NewNotificationError reports failed outbound event delivery.
func NewNotificationError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeNotification, message, originalError)
}

// NewNotFoundError reports a missing resource.
func NewNotFoundError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeNotFound, message, originalError)
}

// NewProcessingError reports an unexpected failure during computation.
func NewProcessingError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeProcessing, message, originalError)
}

// IsValidationError checks whether err is a validation error.
func IsValidationError(err error) bool {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Type == ErrorTypeValidation
	}
	return false
}

// IsPreconditionError checks whether err is a precondition error.
func IsPreconditionError(err error) bool {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Type == ErrorTypePrecondition
	}
	return false
}

// IsUpstreamParseError checks whether err is an upstream parse error.
func IsUpstreamParseError(err error) bool {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Type == ErrorTypeUpstreamParse
	}
	return false
}

// IsNotFoundError checks whether err is a not-found error.
func IsNotFoundError(err error) bool {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Type == ErrorTypeNotFound
	}
	return false
}

// generateErrorCode maps an error type to its stable user-facing code.
func generateErrorCode(errType ErrorType) string {
	switch errType {
	case ErrorTypeValidation:
		return "VALIDATION_ERROR"
	case ErrorTypePrecondition:
		return "PRECONDITION_ERROR"
	case ErrorTypeUpstreamParse:
		return "UPSTREAM_PARSE_ERROR"
	case ErrorTypeNotification:
		return "NOTIFICATION_ERROR"
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	case ErrorTypeProcessing:
		return "PROCESSING_ERROR"
	case ErrorTypeTimeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN_ERROR"
	}
}

// WrapError wraps an existing error, preserving an AppError's type and code.
func WrapError(err error, message string, errType ErrorType) error {
	if err == nil {
		return nil
	}

	var appError *AppError
	if errors.As(err, &appError) {
		return &AppError{
			Type:    appError.Type,
			Message: fmt.Sprintf("%s: %s", message, appError.Message),
			Err:     appError,
			Code:    appError.Code,
		}
	}

	return NewAppError(errType, message, err)
}
