package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/vc8bp/salesflow/internal/domain"
	"github.com/vc8bp/salesflow/pkg/auth"
)

const actorKey = "actor"

// NewAuthMiddleware validates the bearer token and stores the caller's
// identity in the request locals for the handlers downstream.
func NewAuthMiddleware(tokens *auth.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized: missed header"})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized: Invalid header format"})
		}

		claims, err := tokens.ValidateToken(parts[1])
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized: Invalid token"})
		}

		role, ok := domain.ParseRole(claims.Role)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized: Unknown role"})
		}

		c.Locals(actorKey, domain.Actor{ID: claims.UserID, Role: role})
		return c.Next()
	}
}

// ActorFromCtx returns the identity stashed by NewAuthMiddleware.
func ActorFromCtx(c *fiber.Ctx) (domain.Actor, bool) {
	actor, ok := c.Locals(actorKey).(domain.Actor)
	return actor, ok
}
