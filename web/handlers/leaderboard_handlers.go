package handlers

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/ellavondegurechaff/cardrush/cardrush/realtime"
	"github.com/ellavondegurechaff/cardrush/web/utils"
)

const (
	defaultLeaderboardSize = 10
	maxLeaderboardSize     = 100
)

// LeaderboardHandler returns the top players by total points.
func LeaderboardHandler(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := defaultLeaderboardSize
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				return utils.SendBadRequest(c, "Invalid limit", nil)
			}
			limit = parsed
		}
		if limit > maxLeaderboardSize {
			limit = maxLeaderboardSize
		}

		users, err := app.Users.GetTopUsers(c.Context(), limit)
		if err != nil {
			slog.Error("Failed to load leaderboard", slog.Any("error", err))
			return utils.SendInternalServerError(c, "Failed to load leaderboard")
		}

		entries := make([]realtime.LeaderboardEntry, 0, len(users))
		for _, user := range users {
			entries = append(entries, realtime.LeaderboardEntry{
				UserID:      user.ID,
				Username:    user.Username,
				TotalPoints: user.TotalPoints,
			})
		}

		return utils.SendSuccess(c, entries, "")
	}
}

// HealthHandler reports process liveness and the live connection count.
func HealthHandler(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":      "ok",
			"connections": app.Hub.ClientCount(),
		})
	}
}
