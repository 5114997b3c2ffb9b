// Package apperror provides coded application errors and the mapping from
// each code to a fixed HTTP status.
package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// Code is a short machine-checkable error code returned to API callers.
type Code string

const (
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeRefused            Code = "CONTACT_REFUSED"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConflict           Code = "CONFLICT"
	CodeOTPNotRequested    Code = "OTP_NOT_REQUESTED"
	CodeOTPInvalid         Code = "OTP_INVALID"
	CodeOTPExpired         Code = "OTP_EXPIRED"
	CodeOTPAlreadyUsed     Code = "OTP_ALREADY_USED"
	CodeOTPTooManyAttempts Code = "OTP_TOO_MANY_ATTEMPTS"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeUpstreamFailure    Code = "UPSTREAM_FAILURE"
)

// HTTPStatus maps a code to the status used by every endpoint.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation, CodeOTPNotRequested, CodeOTPInvalid:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeRefused:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeOTPAlreadyUsed:
		return http.StatusConflict
	case CodeOTPExpired:
		return http.StatusGone
	case CodeOTPTooManyAttempts, CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}

// Error is a coded error. Message is safe to show to callers; Cause carries
// the internal detail for logs.
type Error struct {
	Code    Code
	Message string
	Cause   error
	// Details lists per-field problems of a VALIDATION_ERROR.
	Details []map[string]string
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates an error with a code and a caller-facing message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an error that keeps cause for logging.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

var (
	ErrNotFound           = New(CodeNotFound, "resource not found")
	ErrUnauthorized       = New(CodeUnauthorized, "invalid or expired token")
	ErrConflict           = New(CodeConflict, "resource already exists")
	ErrRefused            = New(CodeRefused, "owner has disabled contact")
	ErrOTPNotRequested    = New(CodeOTPNotRequested, "no verification code was requested")
	ErrOTPInvalid         = New(CodeOTPInvalid, "verification code is incorrect")
	ErrOTPExpired         = New(CodeOTPExpired, "verification code has expired")
	ErrOTPAlreadyUsed     = New(CodeOTPAlreadyUsed, "verification code was already used")
	ErrOTPTooManyAttempts = New(CodeOTPTooManyAttempts, "too many incorrect attempts, request a new code")
	ErrUpstream           = New(CodeUpstreamFailure, "service temporarily unavailable")
)

// Validation returns a VALIDATION_ERROR with the given message.
func Validation(message string) *Error {
	return New(CodeValidation, message)
}

// InvalidFields returns a VALIDATION_ERROR describing the validator errors
// in err field by field.
func InvalidFields(err error) *Error {
	return &Error{
		Code:    CodeValidation,
		Message: "request validation failed",
		Cause:   err,
		Details: CustomValidationError(err),
	}
}

// As extracts the *Error in err's chain. Errors without a code are reported
// as upstream failures wrapping the original error.
func As(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(CodeUpstreamFailure, ErrUpstream.Message, err)
}

// CodeOf returns the code carried by err.
func CodeOf(err error) Code {
	return As(err).Code
}

var customErrors = map[string]string{
	"required": "is required",
	"email":    "must be a valid email address",
	"phone":    "must be a phone number of 10 to 15 digits",
	"plate":    "must be a valid number plate",
	"tagcode":  "must be a valid tag code",
	"oneof":    "has an unsupported value",
	"numeric":  "must be numeric",
	"len":      "has the wrong length",
	"min":      "is too short or too small",
	"max":      "is too long or too large",
	"gte":      "is too small",
	"lte":      "is too large",
}

// CustomValidationError converts validator errors into a list of
// field-to-message maps.
func CustomValidationError(err error) []map[string]string {
	errList := make([]map[string]string, 0)

	var validationErr validator.ValidationErrors
	if errors.As(err, &validationErr) {
		for _, e := range validationErr {
			msg, ok := customErrors[e.Tag()]
			if !ok {
				msg = fmt.Sprintf("%s is invalid", e.StructNamespace())
			}
			errList = append(errList, map[string]string{e.Field(): msg})
		}
	}
	return errList
}
