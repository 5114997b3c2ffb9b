// Package handlers contains the fiber HTTP handlers of the API.
package handlers

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"contactkar/internal/apperror"
	"contactkar/internal/services"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

// PhoneValidator accepts 10 to 15 digits with an optional leading plus.
var PhoneValidator = func(fl validator.FieldLevel) bool {
	return phonePattern.MatchString(fl.Field().String())
}

// PlateValidator accepts plates of 4 to 12 letters and digits once spaces
// and hyphens are removed.
var PlateValidator = func(fl validator.FieldLevel) bool {
	plate := services.NormalizePlate(fl.Field().String())
	if len(plate) < 4 || len(plate) > 12 {
		return false
	}
	for _, r := range plate {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// TagCodeValidator accepts tag codes in any letter case.
var TagCodeValidator = func(fl validator.FieldLevel) bool {
	return services.ValidTagCode(services.NormalizeTagCode(fl.Field().String()))
}

// NewValidator returns a validator that reports fields by their JSON names
// and knows the phone, plate and tagcode rules.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("phone", PhoneValidator)
	_ = v.RegisterValidation("plate", PlateValidator)
	_ = v.RegisterValidation("tagcode", TagCodeValidator)
	return v
}

// bind parses the JSON body into dst and validates it.
func bind(c *fiber.Ctx, v *validator.Validate, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperror.Wrap(apperror.CodeValidation, "invalid request body", err)
	}
	if err := v.Struct(dst); err != nil {
		return apperror.InvalidFields(err)
	}
	return nil
}

// userID returns the id stored by the auth middleware.
func userID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}

// errorBody is the JSON shape of every failed request.
func errorBody(appErr *apperror.Error) fiber.Map {
	body := fiber.Map{
		"success": false,
		"error":   appErr.Code,
		"message": appErr.Message,
	}
	if len(appErr.Details) > 0 {
		body["errors"] = appErr.Details
	}
	return body
}

// ErrorHandler writes every error returned by a handler as a coded JSON
// body. Errors without a code are logged in full and reported as upstream
// failures.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		var appErr *apperror.Error
		switch {
		case errors.As(err, &appErr):
		case errors.As(err, &fiberErr):
			appErr = fromFiberError(fiberErr)
		default:
			appErr = apperror.As(err)
		}

		status := appErr.Code.HTTPStatus()
		if status >= fiber.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("code", string(appErr.Code)),
				zap.Error(err))
		}
		return c.Status(status).JSON(errorBody(appErr))
	}
}

func fromFiberError(err *fiber.Error) *apperror.Error {
	switch {
	case err.Code == fiber.StatusUnauthorized:
		return apperror.New(apperror.CodeUnauthorized, err.Message)
	case err.Code == fiber.StatusNotFound:
		return apperror.New(apperror.CodeNotFound, err.Message)
	case err.Code == fiber.StatusTooManyRequests:
		return apperror.New(apperror.CodeRateLimited, err.Message)
	case err.Code < fiber.StatusInternalServerError:
		return apperror.New(apperror.CodeValidation, err.Message)
	default:
		return apperror.Wrap(apperror.CodeUpstreamFailure, apperror.ErrUpstream.Message, err)
	}
}
