package errors

import (
	"errors"
	"fmt"
)

// ErrorCode is the stable, machine-readable half of every error returned to
// clients.
type ErrorCode string

const (
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"

	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeMissingRequired ErrorCode = "MISSING_REQUIRED"

	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
	ErrCodeConflict      ErrorCode = "CONFLICT"

	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// A store, the realtime channel or the blob store failed. Never retried here.
	ErrCodeRemoteOperation ErrorCode = "REMOTE_OPERATION_ERROR"
	// Some writes of a multi-write operation landed and others did not.
	ErrCodePartialCompletion ErrorCode = "PARTIAL_COMPLETION"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// AppError carries a code and a client-safe message. The cause is kept for logs
// and errors.Is/As but never serialized.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	cause   error
}

// Error renders the code and message, plus the cause when there is one.
func (e *AppError) Error() string {
	if e.cause == nil {
		return string(e.Code) + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
}

// Unwrap returns the underlying cause.
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause attaches a cause for logs and errors.Is/As.
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

// WithDetails attaches client-visible details.
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// New creates an AppError without a cause.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap creates an AppError around an underlying error.
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, cause: cause}
}

// Constructors for the common codes.

func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message)
}

func Forbidden(message string) *AppError {
	return New(ErrCodeForbidden, message)
}

func InvalidToken(message string) *AppError {
	return New(ErrCodeInvalidToken, message)
}

func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func AlreadyExists(resource string) *AppError {
	return New(ErrCodeAlreadyExists, fmt.Sprintf("%s already exists", resource))
}

func Conflict(message string) *AppError {
	return New(ErrCodeConflict, message)
}

func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func InvalidInput(field string, reason string) *AppError {
	return New(ErrCodeInvalidInput, fmt.Sprintf("Invalid %s: %s", field, reason))
}

func MissingRequired(field string) *AppError {
	return New(ErrCodeMissingRequired, fmt.Sprintf("%s is required", field))
}

func RateLimitExceeded() *AppError {
	return New(ErrCodeRateLimitExceeded, "Rate limit exceeded")
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

// RemoteOperation reports a failed call to a store, the realtime channel or the
// blob store. Callers decide whether to retry; nothing here retries.
func RemoteOperation(operation string, cause error) *AppError {
	return Wrap(ErrCodeRemoteOperation, fmt.Sprintf("Remote operation failed: %s", operation), cause)
}

// PartialCompletion reports a multi-write operation where some writes landed and
// others did not. Details lists which side failed.
func PartialCompletion(message string, details any) *AppError {
	return New(ErrCodePartialCompletion, message).WithDetails(details)
}

// IsAppError reports whether err wraps an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts the AppError in err's chain, if any.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode falls back to ErrCodeInternal for errors that are not AppErrors.
func GetCode(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}

// HasCode reports whether err is an AppError carrying code.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}
