package middleware

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
)

func Recover(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					slog.Any("panic", r),
					slog.String("path", c.Path()),
					slog.String("method", c.Method()),
					slog.String("request_id", requestID(c)),
				)

				_ = c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
					Code:    domain.ErrInternal.Code,
					Message: domain.ErrInternal.Message,
				})
			}
		}()
		return c.Next()
	}
}
