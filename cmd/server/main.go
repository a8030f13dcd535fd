package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bookswap/internal/config"
	"github.com/iliyamo/bookswap/internal/database"
	"github.com/iliyamo/bookswap/internal/handler"
	"github.com/iliyamo/bookswap/internal/middleware"
	"github.com/iliyamo/bookswap/internal/queue"
	"github.com/iliyamo/bookswap/internal/repository"
	"github.com/iliyamo/bookswap/internal/router"
	queue_publisher "github.com/iliyamo/bookswap/internal/service"
)

func main() {
	// .env is optional; real deployments set the variables directly.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connect failed: %v", err)
	}
	if err := database.Migrate(db, cfg.DBName); err != nil {
		log.Fatalf("database migrate failed: %v", err)
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	books := repository.NewBookRepo(db)
	requests := repository.NewRequestRepo(db)

	authHandler := handler.NewAuthHandler(cfg, users, tokens)
	bookHandler := handler.NewBookHandler(books)
	requestHandler := handler.NewRequestHandler(requests, books, queue_publisher.PublishRequestDecided)

	// Response cache for the public catalogue; nil client disables it.
	var cache echo.MiddlewareFunc
	if rdb := config.NewRedisClient(); rdb != nil {
		cache = middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	} else {
		log.Printf("redis unavailable, catalogue cache disabled")
	}

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, cfg.JWTSecret)
	router.RegisterBooks(e, bookHandler, cfg.JWTSecret, cache)
	router.RegisterRequests(e, requestHandler, cfg.JWTSecret)

	// Background consumer building the swap audit log; reconnects forever.
	go func() {
		if err := queue.StartDecisionConsumer(); err != nil {
			log.Printf("swap consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
