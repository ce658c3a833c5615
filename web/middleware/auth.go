package middleware

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ellavondegurechaff/cardrush/cardrush/auth"
	"github.com/ellavondegurechaff/cardrush/web/utils"
)

const userLocalsKey = "user"

// AuthRequired validates the Bearer token and stores the identity claims in
// the request context.
func AuthRequired(tokens *auth.TokenManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			return utils.SendUnauthorized(c, "Authentication required")
		}

		token := strings.TrimPrefix(header, "Bearer ")
		claims, err := tokens.Verify(token)
		if err != nil {
			slog.Debug("Auth required: token rejected",
				slog.String("error", err.Error()))
			return utils.SendUnauthorized(c, "Authentication required")
		}

		c.Locals(userLocalsKey, claims)
		return c.Next()
	}
}

// AdminRequired ensures the authenticated user carries the admin role. Must
// run after AuthRequired.
func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := ClaimsFromCtx(c)
		if claims == nil {
			return utils.SendForbidden(c, "Access denied")
		}
		if claims.Role != "admin" {
			slog.Warn("Admin required: user lacks admin role",
				slog.String("user_id", claims.UserID),
				slog.String("username", claims.Username))
			return utils.SendForbidden(c, "Admin access required")
		}
		return c.Next()
	}
}

// ClaimsFromCtx returns the identity stored by AuthRequired, or nil.
func ClaimsFromCtx(c *fiber.Ctx) *auth.Claims {
	claims, _ := c.Locals(userLocalsKey).(*auth.Claims)
	return claims
}
