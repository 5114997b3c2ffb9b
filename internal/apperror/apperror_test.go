package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusIsFixedPerCode(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeRefused, http.StatusForbidden},
		{CodeNotFound, http.StatusNotFound},
		{CodeConflict, http.StatusConflict},
		{CodeOTPNotRequested, http.StatusBadRequest},
		{CodeOTPInvalid, http.StatusBadRequest},
		{CodeOTPExpired, http.StatusGone},
		{CodeOTPAlreadyUsed, http.StatusConflict},
		{CodeOTPTooManyAttempts, http.StatusTooManyRequests},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeUpstreamFailure, http.StatusBadGateway},
	}
	for _, tc := range tests {
		t.Run(string(tc.code), func(t *testing.T) {
			assert.Equal(t, tc.want, tc.code.HTTPStatus())
		})
	}
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("set contactable: %w", Wrap(CodeNotFound, "tag not found", errors.New("record not found")))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrConflict))
	assert.Equal(t, CodeNotFound, CodeOf(err))
}

func TestAsTreatsUncodedErrorsAsUpstream(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")

	appErr := As(cause)

	assert.Equal(t, CodeUpstreamFailure, appErr.Code)
	assert.Equal(t, ErrUpstream.Message, appErr.Message)
	assert.ErrorIs(t, appErr, cause)
}

func TestCustomValidationError(t *testing.T) {
	type request struct {
		Email string `validate:"required,email"`
		Count int    `validate:"gte=1"`
	}
	err := validator.New().Struct(request{Email: "nope"})

	got := CustomValidationError(err)

	assert.Equal(t, []map[string]string{
		{"Email": "must be a valid email address"},
		{"Count": "is too small"},
	}, got)
	assert.Empty(t, CustomValidationError(errors.New("not a validation error")))
}

func TestInvalidFields(t *testing.T) {
	type request struct {
		Phone string `validate:"required"`
	}
	err := InvalidFields(validator.New().Struct(request{}))

	assert.Equal(t, CodeValidation, err.Code)
	assert.Equal(t, []map[string]string{{"Phone": "is required"}}, err.Details)
	assert.True(t, errors.Is(err, Validation("")))
}
