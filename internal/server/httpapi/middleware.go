package httpapi

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/kairosweb/kairos/internal/server/auth"
)

const claimsLocalKey = "claims"

// requestLogger tags every request with a generated id and logs method,
// path, status, and duration once the handler chain finishes.
func (s *Server) requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := uuid.NewString()
		c.Locals("request_id", requestID)

		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fiberErr, ok := err.(*fiber.Error); ok {
				status = fiberErr.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		s.logger.Info(c.UserContext(), "request",
			"request_id", requestID,
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return err
	}
}

// authRequired guards routes behind a bearer token. Verified claims are
// stored in the request locals for handlers to read.
func (s *Server) authRequired() fiber.Handler {
	secret := []byte(s.config.SecretKey)

	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			return fiber.NewError(fiber.StatusUnauthorized, "Missing auth token")
		}

		claims, err := auth.ParseToken(strings.TrimPrefix(header, "Bearer "), secret)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
		}

		c.Locals(claimsLocalKey, claims)
		return c.Next()
	}
}

func claimsFromCtx(c *fiber.Ctx) *auth.Claims {
	claims, _ := c.Locals(claimsLocalKey).(*auth.Claims)
	return claims
}
