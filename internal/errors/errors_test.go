package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	t.Run("Error returns formatted string", func(t *testing.T) {
		err := New(ErrCodeNotFound, "Profile not found")
		assert.Equal(t, "NOT_FOUND: Profile not found", err.Error())
	})

	t.Run("Error with cause includes cause", func(t *testing.T) {
		cause := errors.New("database connection failed")
		err := Wrap(ErrCodeRemoteOperation, "Remote operation failed", cause)
		assert.Contains(t, err.Error(), "REMOTE_OPERATION_ERROR")
		assert.Contains(t, err.Error(), "Remote operation failed")
		assert.Contains(t, err.Error(), "database connection failed")
	})

	t.Run("WithCause adds cause to error", func(t *testing.T) {
		cause := errors.New("original error")
		err := New(ErrCodeInternal, "Something went wrong").WithCause(cause)
		assert.Equal(t, cause, err.Unwrap())
	})

	t.Run("WithDetails adds details to error", func(t *testing.T) {
		details := map[string]string{"field": "rating", "reason": "out of range"}
		err := New(ErrCodeValidation, "Validation failed").WithDetails(details)
		assert.Equal(t, details, err.Details)
	})
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name         string
		constructor  func() *AppError
		expectedCode ErrorCode
	}{
		{"Unauthorized", func() *AppError { return Unauthorized("test") }, ErrCodeUnauthorized},
		{"Forbidden", func() *AppError { return Forbidden("test") }, ErrCodeForbidden},
		{"InvalidToken", func() *AppError { return InvalidToken("test") }, ErrCodeInvalidToken},
		{"NotFound", func() *AppError { return NotFound("Session") }, ErrCodeNotFound},
		{"AlreadyExists", func() *AppError { return AlreadyExists("User") }, ErrCodeAlreadyExists},
		{"Conflict", func() *AppError { return Conflict("test") }, ErrCodeConflict},
		{"ValidationError", func() *AppError { return ValidationError("test") }, ErrCodeValidation},
		{"InvalidInput", func() *AppError { return InvalidInput("email", "invalid") }, ErrCodeInvalidInput},
		{"MissingRequired", func() *AppError { return MissingRequired("text") }, ErrCodeMissingRequired},
		{"RateLimitExceeded", func() *AppError { return RateLimitExceeded() }, ErrCodeRateLimitExceeded},
		{"RemoteOperation", func() *AppError { return RemoteOperation("upload", errors.New("x")) }, ErrCodeRemoteOperation},
		{"PartialCompletion", func() *AppError { return PartialCompletion("half done", nil) }, ErrCodePartialCompletion},
		{"Internal", func() *AppError { return Internal("test") }, ErrCodeInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.constructor()
			assert.Equal(t, tc.expectedCode, err.Code)
			assert.NotEmpty(t, err.Message)
		})
	}
}

func TestRemoteOperation(t *testing.T) {
	t.Run("wraps collaborator failure", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := RemoteOperation("update profile", cause)
		assert.Equal(t, ErrCodeRemoteOperation, err.Code)
		assert.Contains(t, err.Message, "update profile")
		assert.Equal(t, cause, err.Unwrap())
	})
}

func TestPartialCompletion(t *testing.T) {
	t.Run("carries failed side in details", func(t *testing.T) {
		details := map[string]bool{"profileUpdated": true, "sessionUpdated": false}
		err := PartialCompletion("Rating partially applied", details)
		assert.Equal(t, ErrCodePartialCompletion, err.Code)
		assert.Equal(t, details, err.Details)
	})
}

func TestIsAppError(t *testing.T) {
	t.Run("returns true for AppError", func(t *testing.T) {
		err := New(ErrCodeNotFound, "test")
		assert.True(t, IsAppError(err))
	})

	t.Run("returns false for standard error", func(t *testing.T) {
		err := errors.New("standard error")
		assert.False(t, IsAppError(err))
	})

	t.Run("returns true for fmt-wrapped AppError", func(t *testing.T) {
		appErr := New(ErrCodeNotFound, "test")
		wrapped := fmt.Errorf("load profile: %w", appErr)
		assert.True(t, IsAppError(wrapped))
	})
}

func TestAsAppError(t *testing.T) {
	t.Run("extracts AppError", func(t *testing.T) {
		original := New(ErrCodeNotFound, "Profile not found")
		extracted, ok := AsAppError(original)
		assert.True(t, ok)
		assert.Equal(t, original, extracted)
	})

	t.Run("returns false for non-AppError", func(t *testing.T) {
		err := errors.New("standard error")
		extracted, ok := AsAppError(err)
		assert.False(t, ok)
		assert.Nil(t, extracted)
	})
}

func TestGetCode(t *testing.T) {
	t.Run("returns code for AppError", func(t *testing.T) {
		err := New(ErrCodeNotFound, "test")
		assert.Equal(t, ErrCodeNotFound, GetCode(err))
		assert.True(t, HasCode(err, ErrCodeNotFound))
	})

	t.Run("returns ErrCodeInternal for standard error", func(t *testing.T) {
		err := errors.New("standard error")
		assert.Equal(t, ErrCodeInternal, GetCode(err))
		assert.False(t, HasCode(err, ErrCodeNotFound))
	})
}

func TestNotFoundMessage(t *testing.T) {
	t.Run("formats resource name correctly", func(t *testing.T) {
		err := NotFound("Profile")
		assert.Equal(t, "Profile not found", err.Message)

		err = NotFound("Session")
		assert.Equal(t, "Session not found", err.Message)
	})
}

func TestMissingRequiredMessage(t *testing.T) {
	t.Run("formats field name correctly", func(t *testing.T) {
		err := MissingRequired("text")
		assert.Equal(t, "text is required", err.Message)

		err = MissingRequired("rating")
		assert.Equal(t, "rating is required", err.Message)
	})
}
