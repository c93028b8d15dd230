package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"kampus-admin/core"
)

func main() {
	cfg := core.Load()
	ctx := context.Background()

	logCloser, err := core.SetupLogging(cfg, "api.log")
	if err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}
	defer logCloser.Close()

	db, err := core.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	if err := core.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("failed to ensure schema: %v", err)
	}

	redisClient, err := core.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer redisClient.Close()

	userRepo := core.NewPgUserRepository(db)
	authService := core.NewRepositoryAuthService(userRepo)
	tokens := core.NewTokenService(cfg.JWTSecret, cfg.TokenExpireMinutes)

	if err := core.BootstrapAccounts(ctx, userRepo, cfg); err != nil {
		log.Fatalf("bootstrap accounts failed: %v", err)
	}

	queue := core.NewRedisQueue(redisClient)
	deps := core.APIDeps{
		Auth:         authService,
		Tokens:       tokens,
		Users:        userRepo,
		Customers:    core.NewPgCustomerRepository(db),
		Partnerships: core.NewPgPartnershipRepository(db),
		Financials:   core.NewPgFinancialRepository(db),
		Activity:     core.NewPgActivityRepository(db),
		Recorder:     core.NewActivityRecorder(queue),
		Metrics:      core.NewMetricsService(redisClient),
	}

	router := core.NewRouter(cfg, deps)

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("starting api server on %s (token expiry %s)", addr, time.Duration(cfg.TokenExpireMinutes)*time.Minute)
	if err := router.Run(addr); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
