package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	lru "github.com/hashicorp/golang-lru"

	"github.com/ellavondegurechaff/cardrush/cardrush/auth"
	"github.com/ellavondegurechaff/cardrush/cardrush/database/models"
	"github.com/ellavondegurechaff/cardrush/cardrush/database/repositories"
	"github.com/ellavondegurechaff/cardrush/cardrush/realtime"
	"github.com/ellavondegurechaff/cardrush/web/middleware"
)

const ownerNameCacheSize = 512

// ClaimArbiter is the claim pipeline as the web layer sees it.
type ClaimArbiter interface {
	AttemptClaim(ctx context.Context, userID string, cardID int64) (*models.Card, error)
}

// Seeder populates the starter card pool.
type Seeder interface {
	Seed(ctx context.Context, force bool) (int, error)
}

// WebApp aggregates everything the HTTP handlers need.
type WebApp struct {
	Cards  repositories.CardRepository
	Users  repositories.UserRepository
	Arbiter ClaimArbiter
	Seeder  Seeder
	Tokens  *auth.TokenManager
	Hub     *realtime.Hub

	ownerNames *lru.Cache
}

func NewWebApp(cards repositories.CardRepository, users repositories.UserRepository, arbiter ClaimArbiter, seeder Seeder, tokens *auth.TokenManager, hub *realtime.Hub) *WebApp {
	cache, _ := lru.New(ownerNameCacheSize)
	return &WebApp{
		Cards:      cards,
		Users:      users,
		Arbiter:    arbiter,
		Seeder:     seeder,
		Tokens:     tokens,
		Hub:        hub,
		ownerNames: cache,
	}
}

// ownerUsername resolves a user id to its display name through a small LRU
// cache; usernames are immutable once registered.
func (app *WebApp) ownerUsername(ctx context.Context, userID string) string {
	if cached, ok := app.ownerNames.Get(userID); ok {
		return cached.(string)
	}
	user, err := app.Users.GetByID(ctx, userID)
	if err != nil {
		return ""
	}
	app.ownerNames.Add(userID, user.Username)
	return user.Username
}

// SetupRoutes mounts all API routes on the fiber app.
func SetupRoutes(app *fiber.App, webApp *WebApp) {
	api := app.Group("/api")

	authGroup := api.Group("/auth", middleware.AuthRateLimit())
	authGroup.Post("/register", RegisterHandler(webApp))
	authGroup.Post("/login", LoginHandler(webApp))

	api.Get("/cards", ListCardsHandler(webApp))
	api.Get("/cards/:id", GetCardHandler(webApp))
	api.Post("/cards/:id/claim", middleware.AuthRequired(webApp.Tokens), ClaimCardHandler(webApp))

	api.Get("/leaderboard", LeaderboardHandler(webApp))
	api.Get("/users/me", middleware.AuthRequired(webApp.Tokens), MeHandler(webApp))

	admin := api.Group("/admin", middleware.AuthRequired(webApp.Tokens), middleware.AdminRequired())
	admin.Post("/cards", CreateCardHandler(webApp))
	admin.Put("/cards/:id", UpdateCardHandler(webApp))
	admin.Delete("/cards/:id", DeleteCardHandler(webApp))
	admin.Post("/seed", SeedHandler(webApp))

	app.Get("/health", HealthHandler(webApp))
}
