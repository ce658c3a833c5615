package handlers

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/ellavondegurechaff/cardrush/cardrush/database/repositories"
	"github.com/ellavondegurechaff/cardrush/cardrush/realtime"
	"github.com/ellavondegurechaff/cardrush/cardrush/services"
	"github.com/ellavondegurechaff/cardrush/web/middleware"
	"github.com/ellavondegurechaff/cardrush/web/utils"
)

// ListCardsHandler returns the whole card pool with owner display names.
func ListCardsHandler(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cards, err := app.Cards.GetAll(c.Context())
		if err != nil {
			slog.Error("Failed to list cards", slog.Any("error", err))
			return utils.SendInternalServerError(c, "Failed to load cards")
		}

		payloads := make([]realtime.CardPayload, 0, len(cards))
		for _, card := range cards {
			payload := realtime.CardPayload{Card: *card}
			if card.OwnerID != nil {
				payload.OwnerUsername = app.ownerUsername(c.Context(), *card.OwnerID)
			}
			payloads = append(payloads, payload)
		}

		return utils.SendSuccess(c, payloads, "")
	}
}

// GetCardHandler returns one card by id.
func GetCardHandler(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cardID, err := parseCardID(c)
		if err != nil {
			return utils.SendBadRequest(c, "Invalid card ID", nil)
		}

		card, err := app.Cards.GetByID(c.Context(), cardID)
		if err != nil {
			if errors.Is(err, repositories.ErrCardNotFound) {
				return utils.SendNotFound(c, "Card not found")
			}
			return utils.SendInternalServerError(c, "Failed to load card")
		}

		payload := realtime.CardPayload{Card: *card}
		if card.OwnerID != nil {
			payload.OwnerUsername = app.ownerUsername(c.Context(), *card.OwnerID)
		}

		return utils.SendSuccess(c, payload, "")
	}
}

// ClaimCardHandler runs the claim pipeline for the authenticated user and
// maps typed rejections onto transport responses.
func ClaimCardHandler(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := middleware.ClaimsFromCtx(c)
		if claims == nil {
			return utils.SendUnauthorized(c, "Authentication required")
		}

		cardID, err := parseCardID(c)
		if err != nil {
			return utils.SendBadRequest(c, "Invalid card ID", nil)
		}

		card, err := app.Arbiter.AttemptClaim(c.Context(), claims.UserID, cardID)
		if err != nil {
			return sendClaimError(c, err)
		}

		payload := realtime.CardPayload{Card: *card, OwnerUsername: claims.Username}
		return utils.SendSuccess(c, payload, "Card claimed")
	}
}

// sendClaimError maps a claim pipeline error to a transport response. Policy
// rejections are 400 with structured detail; a missing card is 404; a
// non-resolving user under a valid token is unexpected, so 500.
func sendClaimError(c *fiber.Ctx, err error) error {
	var claimErr *services.ClaimError
	if !errors.As(err, &claimErr) {
		slog.Error("Claim failed unexpectedly", slog.Any("error", err))
		return utils.SendInternalServerError(c, "Claim failed")
	}

	switch claimErr.Code {
	case services.ClaimCardNotFound:
		return utils.SendNotFound(c, claimErr.Error())
	case services.ClaimUserNotFound:
		return utils.SendInternalServerError(c, claimErr.Error())
	case services.ClaimCooldownActive:
		return utils.SendError(c, fiber.StatusBadRequest, string(claimErr.Code), claimErr.Error(), map[string]string{
			"remainingSeconds": strconv.Itoa(claimErr.RemainingSeconds),
		})
	case services.ClaimActiveCardLimit:
		return utils.SendError(c, fiber.StatusBadRequest, string(claimErr.Code), claimErr.Error(), map[string]string{
			"limit": strconv.Itoa(claimErr.Limit),
		})
	case services.ClaimRateLimited:
		return utils.SendError(c, fiber.StatusBadRequest, string(claimErr.Code), claimErr.Error(), map[string]string{
			"limit":         strconv.Itoa(claimErr.Limit),
			"windowMinutes": strconv.Itoa(claimErr.WindowMinutes),
		})
	default:
		// Card taken and race losses.
		return utils.SendError(c, fiber.StatusBadRequest, string(claimErr.Code), claimErr.Error(), nil)
	}
}

func parseCardID(c *fiber.Ctx) (int64, error) {
	return strconv.ParseInt(c.Params("id"), 10, 64)
}
