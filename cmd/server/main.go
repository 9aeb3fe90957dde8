package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Tcborder/ethernal-tickets/internal/config"
	"github.com/Tcborder/ethernal-tickets/internal/database"
	"github.com/Tcborder/ethernal-tickets/internal/handler"
	"github.com/Tcborder/ethernal-tickets/internal/middleware"
	"github.com/Tcborder/ethernal-tickets/internal/queue"
	"github.com/Tcborder/ethernal-tickets/internal/repository"
	"github.com/Tcborder/ethernal-tickets/internal/reservation"
	"github.com/Tcborder/ethernal-tickets/internal/router"
)

func main() {
	// Load .env if present; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(ctx, db); err != nil {
		cancel()
		log.Fatalf("migrate: %v", err)
	}
	cancel()

	accounts := repository.NewAccountRepo(db)
	seats := repository.NewSeatRepo(db)
	tickets := repository.NewTicketRepo(db)

	coordinator := reservation.NewCoordinator(accounts, seats, tickets)
	adminSvc := reservation.NewAdminService(db, accounts, seats, tickets, cfg.BalanceCeiling, cfg.BcryptCost)

	// Redis is optional: without it the cache and rate limiter become
	// pass-throughs and the API still works.
	rdb := config.NewRedisClient()
	var mw router.Middleware
	if rdb != nil {
		mw.Cache = middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
		mw.RateLimit = middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	}

	h := router.Handlers{
		Health: handler.NewHealthHandler(db),
		Auth:   handler.NewAuthHandler(cfg, accounts),
		Ticket: handler.NewTicketHandler(coordinator, seats, tickets),
		Admin:  handler.NewAdminHandler(accounts, tickets, adminSvc),
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	router.RegisterRoutes(e, h, mw, cfg.JWTSecret)

	// Drain purchase events to the audit log. The consumer reconnects on
	// its own, so a missing broker only costs the audit trail.
	go func() {
		if err := queue.StartPurchaseConsumer(); err != nil {
			log.Printf("purchase consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
