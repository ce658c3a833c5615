package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/sync/errgroup"

	"github.com/ellavondegurechaff/cardrush/cardrush"
	"github.com/ellavondegurechaff/cardrush/cardrush/auth"
	"github.com/ellavondegurechaff/cardrush/cardrush/database"
	"github.com/ellavondegurechaff/cardrush/cardrush/database/repositories"
	"github.com/ellavondegurechaff/cardrush/cardrush/logger"
	"github.com/ellavondegurechaff/cardrush/cardrush/realtime"
	"github.com/ellavondegurechaff/cardrush/cardrush/services"
	"github.com/ellavondegurechaff/cardrush/web/handlers"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	configPath := "config.toml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := cardrush.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(logger.NewHandler(cfg.Log.Level)))

	logger.LogSystem("Starting CardRush",
		slog.String("version", version),
		slog.String("commit", commit))
	slog.Debug("Loaded configuration", slog.String("config", cfg.String()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db, err := database.New(dbCtx, database.DBConfig{
		Host:         cfg.DB.Host,
		Port:         cfg.DB.Port,
		User:         cfg.DB.User,
		Password:     cfg.DB.Password,
		Database:     cfg.DB.Database,
		PoolSize:     cfg.DB.PoolSize,
		MaxIdleConns: cfg.DB.MaxIdleConns,
		MaxLifetime:  cfg.DB.MaxLifetime,
	})
	if err != nil {
		logger.LogError("Failed to connect to database", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.InitTables(dbCtx); err != nil {
		logger.LogError("Failed to initialize tables", err)
		os.Exit(1)
	}

	cardRepo := repositories.NewCardRepository(db.BunDB())
	userRepo := repositories.NewUserRepository(db.BunDB())
	claimLogRepo := repositories.NewClaimLogRepository(db.BunDB())

	tokens := auth.NewTokenManager(cfg.Auth.Secret, cfg.Auth.TokenTTL())
	hub := realtime.NewHub(cfg.Game.HeartbeatInterval())
	clock := services.SystemClock()

	claimService := services.NewClaimService(cardRepo, userRepo, claimLogRepo, hub, clock, services.ClaimConfig{
		MaxClaimsPerWindow: cfg.Game.MaxClaimsPerWindow,
		ClaimWindow:        cfg.Game.ClaimWindow(),
		MaxActiveCards:     cfg.Game.MaxActiveCards,
		BaseCooldown:       cfg.Game.BaseCooldown(),
		TrapPenalty:        cfg.Game.TrapPenalty(),
	})
	expiryService := services.NewExpiryService(cardRepo, hub, clock, cfg.Game.SweepInterval())
	seedService := services.NewSeedService(cardRepo)

	claimLogRepo.StartCleanupRoutine(ctx, cfg.Game.ClaimWindow())

	webApp := handlers.NewWebApp(cardRepo, userRepo, claimService, seedService, tokens, hub)

	app := fiber.New(fiber.Config{
		AppName:      "CardRush",
		ErrorHandler: fiberErrorHandler,
	})
	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(compress.New())

	handlers.SetupRoutes(app, webApp)

	wsMux := http.NewServeMux()
	wsMux.Handle("/ws", realtime.NewHandler(hub, tokens))
	wsServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.RealtimePort),
		Handler: wsMux,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		logger.LogSystem("API server listening", slog.String("addr", addr))
		return app.Listen(addr)
	})

	g.Go(func() error {
		logger.LogSystem("Realtime server listening", slog.String("addr", wsServer.Addr))
		if err := wsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return hub.Run(gctx)
	})

	g.Go(func() error {
		return expiryService.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.LogSystem("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.LogError("API server shutdown failed", err)
		}
		if err := wsServer.Shutdown(shutdownCtx); err != nil {
			logger.LogError("Realtime server shutdown failed", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.LogError("Server exited with error", err)
		os.Exit(1)
	}

	logger.LogSystem("Shutdown complete")
}

func fiberErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if fe, ok := err.(*fiber.Error); ok {
		code = fe.Code
	}
	if code == fiber.StatusInternalServerError {
		logger.LogError("Unhandled request error", err,
			slog.String("path", c.Path()),
			slog.String("method", c.Method()))
	}
	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error": fiber.Map{
			"code":    "INTERNAL_SERVER_ERROR",
			"message": "Something went wrong",
		},
	})
}
