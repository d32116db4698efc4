package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ml4ch/CoSESWeather/internal/services"
)

// Response tags. Callers branch on these rather than on the message text.
const (
	TagSuccess    = "__SUCCESS"
	TagNoResult   = "_NO_RESULT"
	TagNoCommands = "_NO_COMMANDS"
	TagAuth       = "ERROR_AUTH"
	TagNotFound   = "ERROR_ACC_NOT_FOUND"
	TagDuplicate  = "ERROR_DUPLICATE"
	TagBadRequest = "ERROR_REQUEST"
	TagStorage    = "ERROR_STORAGE"
	TagInternal   = "ERROR_INTERNAL"
)

func success(c *fiber.Ctx, message string, data interface{}) error {
	body := fiber.Map{
		"error":   false,
		"tag":     TagSuccess,
		"message": message,
	}
	if data != nil {
		body["data"] = data
	}
	return c.JSON(body)
}

func tagged(c *fiber.Ctx, tag, message string, extra fiber.Map) error {
	body := fiber.Map{
		"error":   false,
		"tag":     tag,
		"message": message,
	}
	for k, v := range extra {
		body[k] = v
	}
	return c.JSON(body)
}

// badRequest wraps a parse or validation failure so the error handler tags it.
func badRequest(err error) error {
	return fmt.Errorf("%w: %v", services.ErrInvalidRequest, err)
}

// ErrorHandler renders every failure as a tagged envelope. Storage failures are logged
// and reported without detail.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		tag := TagInternal
		message := "Internal server error"

		var fe *fiber.Error
		switch {
		case errors.Is(err, services.ErrAuthenticationFailed):
			code, tag, message = fiber.StatusUnauthorized, TagAuth, "User not authenticated"
		case errors.Is(err, services.ErrNotFound):
			code, tag, message = fiber.StatusNotFound, TagNotFound, "Record not found"
		case errors.Is(err, services.ErrDuplicateIdentity):
			code, tag, message = fiber.StatusConflict, TagDuplicate, "Email must be unique"
		case errors.Is(err, services.ErrInvalidRequest):
			code, tag, message = fiber.StatusBadRequest, TagBadRequest, err.Error()
		case errors.Is(err, services.ErrStorageUnavailable):
			code, tag, message = fiber.StatusServiceUnavailable, TagStorage, "Storage unavailable"
			logger.Error("storage failure",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		case errors.As(err, &fe):
			code, message = fe.Code, fe.Message
			if code < fiber.StatusInternalServerError {
				tag = TagBadRequest
			}
		default:
			logger.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		}

		return c.Status(code).JSON(fiber.Map{
			"error":   true,
			"tag":     tag,
			"message": message,
		})
	}
}
