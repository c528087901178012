package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	t.Run("Error returns formatted string", func(t *testing.T) {
		err := New(ErrCodeNotFound, "Action not found")
		assert.Equal(t, "NOT_FOUND: Action not found", err.Error())
	})

	t.Run("Error with cause includes cause", func(t *testing.T) {
		cause := errors.New("database connection failed")
		err := Wrap(ErrCodeDatabase, "Database error", cause)
		assert.Contains(t, err.Error(), "DATABASE_ERROR")
		assert.Contains(t, err.Error(), "Database error")
		assert.Contains(t, err.Error(), "database connection failed")
	})

	t.Run("WithCause adds cause to error", func(t *testing.T) {
		cause := errors.New("original error")
		err := New(ErrCodeInternal, "Something went wrong").WithCause(cause)
		assert.Equal(t, cause, err.Unwrap())
	})

	t.Run("WithDetails adds details to error", func(t *testing.T) {
		details := map[string]string{"field": "status", "reason": "invalid transition"}
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
		{"NotFound", func() *AppError { return NotFound("Action") }, ErrCodeNotFound},
		{"AlreadyExists", func() *AppError { return AlreadyExists("Account") }, ErrCodeAlreadyExists},
		{"ValidationError", func() *AppError { return ValidationError("test") }, ErrCodeValidation},
		{"InvalidTransition", func() *AppError { return InvalidTransition("completed", "approved") }, ErrCodeValidation},
		{"InvalidInput", func() *AppError { return InvalidInput("platform", "unknown") }, ErrCodeInvalidInput},
		{"MissingRequired", func() *AppError { return MissingRequired("comment_text") }, ErrCodeMissingRequired},
		{"ResourceExhausted", func() *AppError { return ResourceExhausted("test") }, ErrCodeResourceExhausted},
		{"QuotaExceeded", func() *AppError { return QuotaExceeded(5, 2) }, ErrCodeResourceExhausted},
		{"Unavailable", func() *AppError { return Unavailable("test") }, ErrCodeUnavailable},
		{"Timeout", func() *AppError { return Timeout("test") }, ErrCodeTimeout},
		{"RateLimitExceeded", func() *AppError { return RateLimitExceeded() }, ErrCodeRateLimitExceeded},
		{"Internal", func() *AppError { return Internal("test") }, ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.constructor()
			assert.Equal(t, tt.expectedCode, err.Code)
		})
	}
}

func TestInvalidTransitionNamesBothStates(t *testing.T) {
	err := InvalidTransition("pending_review", "completed")
	assert.Contains(t, err.Message, "pending_review")
	assert.Contains(t, err.Message, "completed")
}

func TestGetCode(t *testing.T) {
	t.Run("returns code for AppError", func(t *testing.T) {
		err := NotFound("Action")
		assert.Equal(t, ErrCodeNotFound, GetCode(err))
	})

	t.Run("returns internal for plain error", func(t *testing.T) {
		err := errors.New("plain error")
		assert.Equal(t, ErrCodeInternal, GetCode(err))
	})

	t.Run("unwraps nested AppError", func(t *testing.T) {
		inner := QuotaExceeded(1, 0)
		wrapped := errors.Join(errors.New("outer"), inner)
		assert.Equal(t, ErrCodeResourceExhausted, GetCode(wrapped))
	})
}
