package handlers

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid/v5"

	"github.com/ellavondegurechaff/cardrush/cardrush/auth"
	"github.com/ellavondegurechaff/cardrush/cardrush/database/models"
	"github.com/ellavondegurechaff/cardrush/cardrush/database/repositories"
	"github.com/ellavondegurechaff/cardrush/web/middleware"
	webmodels "github.com/ellavondegurechaff/cardrush/web/models"
	"github.com/ellavondegurechaff/cardrush/web/utils"
)

const (
	minUsernameLen = 3
	minPasswordLen = 8
)

// RegisterHandler creates a player account and issues a token.
func RegisterHandler(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req webmodels.RegisterRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendBadRequest(c, "Invalid request body", nil)
		}

		req.Username = strings.TrimSpace(req.Username)
		if len(req.Username) < minUsernameLen {
			return utils.SendBadRequest(c, "Username must be at least 3 characters", nil)
		}
		if len(req.Password) < minPasswordLen {
			return utils.SendBadRequest(c, "Password must be at least 8 characters", nil)
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			slog.Error("Failed to hash password", slog.Any("error", err))
			return utils.SendInternalServerError(c, "Registration failed")
		}

		id, err := uuid.NewV4()
		if err != nil {
			return utils.SendInternalServerError(c, "Registration failed")
		}

		user := &models.User{
			ID:           id.String(),
			Username:     req.Username,
			PasswordHash: hash,
			Role:         models.RoleUser,
		}

		if err := app.Users.Create(c.Context(), user); err != nil {
			if errors.Is(err, repositories.ErrUsernameTaken) {
				return utils.SendConflict(c, "Username already taken", nil)
			}
			slog.Error("Failed to create user", slog.Any("error", err))
			return utils.SendInternalServerError(c, "Registration failed")
		}

		token, err := app.Tokens.Issue(user)
		if err != nil {
			slog.Error("Failed to issue token", slog.Any("error", err))
			return utils.SendInternalServerError(c, "Registration failed")
		}

		return utils.SendCreated(c, webmodels.AuthResponse{Token: token, User: user}, "Registered")
	}
}

// LoginHandler verifies credentials and issues a token.
func LoginHandler(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req webmodels.LoginRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendBadRequest(c, "Invalid request body", nil)
		}

		user, err := app.Users.GetByUsername(c.Context(), strings.TrimSpace(req.Username))
		if err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				return utils.SendUnauthorized(c, "Invalid credentials")
			}
			slog.Error("Failed to load user for login", slog.Any("error", err))
			return utils.SendInternalServerError(c, "Login failed")
		}

		if !auth.CheckPassword(user.PasswordHash, req.Password) {
			return utils.SendUnauthorized(c, "Invalid credentials")
		}

		token, err := app.Tokens.Issue(user)
		if err != nil {
			slog.Error("Failed to issue token", slog.Any("error", err))
			return utils.SendInternalServerError(c, "Login failed")
		}

		return utils.SendSuccess(c, webmodels.AuthResponse{Token: token, User: user}, "Logged in")
	}
}

// MeHandler returns the authenticated user's record.
func MeHandler(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := middleware.ClaimsFromCtx(c)
		if claims == nil {
			return utils.SendUnauthorized(c, "Authentication required")
		}

		user, err := app.Users.GetByID(c.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				return utils.SendNotFound(c, "User not found")
			}
			return utils.SendInternalServerError(c, "Failed to load user")
		}

		return utils.SendSuccess(c, user, "")
	}
}
