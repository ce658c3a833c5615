package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ellavondegurechaff/cardrush/cardrush"
	"github.com/ellavondegurechaff/cardrush/cardrush/database"
	"github.com/ellavondegurechaff/cardrush/cardrush/database/repositories"
	"github.com/ellavondegurechaff/cardrush/cardrush/logger"
	"github.com/ellavondegurechaff/cardrush/cardrush/services"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to config file")
	force := flag.Bool("force", false, "seed even when the card pool is non-empty")
	flag.Parse()

	cfg, err := cardrush.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(logger.NewHandler(cfg.Log.Level)))

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	db, err := database.New(ctx, database.DBConfig{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		Database: cfg.DB.Database,
		PoolSize: cfg.DB.PoolSize,
	})
	if err != nil {
		logger.LogError("Failed to connect to database", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.InitTables(ctx); err != nil {
		logger.LogError("Failed to initialize tables", err)
		os.Exit(1)
	}

	seeder := services.NewSeedService(repositories.NewCardRepository(db.BunDB()))
	seeded, err := seeder.Seed(ctx, *force)
	if err != nil {
		logger.LogError("Seed failed", err)
		os.Exit(1)
	}

	logger.LogSystem("Seed finished", slog.Int("cards", seeded))
}
