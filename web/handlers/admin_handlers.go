package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/ellavondegurechaff/cardrush/cardrush/database/models"
	"github.com/ellavondegurechaff/cardrush/cardrush/database/repositories"
	webmodels "github.com/ellavondegurechaff/cardrush/web/models"
	"github.com/ellavondegurechaff/cardrush/web/utils"
)

// CreateCardHandler adds a card to the pool.
func CreateCardHandler(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req webmodels.CreateCardRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendBadRequest(c, "Invalid request body", nil)
		}

		card, errMsg := cardFromRequest(&req)
		if errMsg != "" {
			return utils.SendBadRequest(c, errMsg, nil)
		}

		if err := app.Cards.Create(c.Context(), card); err != nil {
			slog.Error("Failed to create card", slog.Any("error", err))
			return utils.SendInternalServerError(c, "Failed to create card")
		}

		return utils.SendCreated(c, card, "Card created")
	}
}

// UpdateCardHandler edits card attributes. Ownership fields are not
// editable here; they belong to the arbiter and the sweeper.
func UpdateCardHandler(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cardID, err := parseCardID(c)
		if err != nil {
			return utils.SendBadRequest(c, "Invalid card ID", nil)
		}

		var req webmodels.CreateCardRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendBadRequest(c, "Invalid request body", nil)
		}

		card, err := app.Cards.GetByID(c.Context(), cardID)
		if err != nil {
			if errors.Is(err, repositories.ErrCardNotFound) {
				return utils.SendNotFound(c, "Card not found")
			}
			return utils.SendInternalServerError(c, "Failed to load card")
		}

		updated, errMsg := cardFromRequest(&req)
		if errMsg != "" {
			return utils.SendBadRequest(c, errMsg, nil)
		}

		card.Name = updated.Name
		card.Image = updated.Image
		card.PointValue = updated.PointValue
		card.DurationSeconds = updated.DurationSeconds
		card.Kind = updated.Kind

		if err := app.Cards.Update(c.Context(), card); err != nil {
			slog.Error("Failed to update card", slog.Any("error", err))
			return utils.SendInternalServerError(c, "Failed to update card")
		}

		return utils.SendSuccess(c, card, "Card updated")
	}
}

// DeleteCardHandler removes a card from the pool.
func DeleteCardHandler(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cardID, err := parseCardID(c)
		if err != nil {
			return utils.SendBadRequest(c, "Invalid card ID", nil)
		}

		if err := app.Cards.Delete(c.Context(), cardID); err != nil {
			if errors.Is(err, repositories.ErrCardNotFound) {
				return utils.SendNotFound(c, "Card not found")
			}
			slog.Error("Failed to delete card", slog.Any("error", err))
			return utils.SendInternalServerError(c, "Failed to delete card")
		}

		return utils.SendSuccess(c, nil, "Card deleted")
	}
}

// SeedHandler populates the starter deck. ?force=true reseeds even when the
// pool is non-empty.
func SeedHandler(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		force := c.Query("force") == "true"

		seeded, err := app.Seeder.Seed(c.Context(), force)
		if err != nil {
			slog.Error("Failed to seed cards", slog.Any("error", err))
			return utils.SendInternalServerError(c, "Failed to seed cards")
		}

		return utils.SendSuccess(c, fiber.Map{"seeded": seeded}, "Seed complete")
	}
}

func cardFromRequest(req *webmodels.CreateCardRequest) (*models.Card, string) {
	if req.Name == "" {
		return nil, "Card name is required"
	}
	if req.DurationSeconds <= 0 {
		return nil, "Duration must be positive"
	}
	kind := models.CardKind(req.Kind)
	if !kind.Valid() {
		return nil, "Kind must be one of normal, rare, trap"
	}

	return &models.Card{
		Name:            req.Name,
		Image:           req.Image,
		PointValue:      req.PointValue,
		DurationSeconds: req.DurationSeconds,
		Kind:            kind,
	}, ""
}
