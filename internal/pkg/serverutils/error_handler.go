// FILE: internal/pkg/serverutils/error_handler.go
package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/go-playground/validator/v10"

	"tenderanalysis/internal/domain"
)

// ErrorHandlerMiddleware centralizes the mapping from a handler's
// returned error to an HTTP status, so individual controllers can just
// `return err` instead of repeating ctx.Status(...).JSON(...) everywhere.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code, message := classify(err)
		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}

func classify(err error) (int, string) {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code, fiberErr.Message
	}

	var validationErr validator.ValidationErrors
	if errors.As(err, &validationErr) {
		return fiber.StatusBadRequest, validationErr.Error()
	}

	switch {
	case errors.Is(err, domain.ErrUnsupportedArtifact),
		errors.Is(err, domain.ErrEmptyDocument),
		errors.Is(err, domain.ErrConfigInvalid):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrEmbeddingUnavailable),
		errors.Is(err, domain.ErrVectorStoreUnavailable):
		return fiber.StatusServiceUnavailable, err.Error()
	case errors.Is(err, domain.ErrStageTimeout):
		return fiber.StatusGatewayTimeout, err.Error()
	default:
		return fiber.StatusInternalServerError, err.Error()
	}
}
