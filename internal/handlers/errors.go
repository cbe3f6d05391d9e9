package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/resume-matcher/internal/apperr"
)

// ErrorHandler renders errors as {"error", "code"} with a status derived from
// the error kind.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := StatusFor(err)

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}

// StatusFor maps an error to an HTTP status code.
func StatusFor(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}

	var ae *apperr.Error
	if !errors.As(err, &ae) {
		return fiber.StatusInternalServerError
	}

	switch ae.Kind {
	case apperr.KindInvalidInput, apperr.KindUnsupportedFormat:
		return fiber.StatusBadRequest
	case apperr.KindValidation:
		return fiber.StatusUnprocessableEntity
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	case apperr.KindConflict:
		return fiber.StatusConflict
	case apperr.KindModelUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// validationError turns validator output into a Validation error naming
// every failed field.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Wrap(apperr.KindValidation, err, "invalid request")
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
	}
	return apperr.New(apperr.KindValidation, "validation failed: %s", strings.Join(parts, ", "))
}
