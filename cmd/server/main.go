package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/karimdhz/atelier-portal/internal/config"
	"github.com/karimdhz/atelier-portal/internal/database"
	"github.com/karimdhz/atelier-portal/internal/email"
	"github.com/karimdhz/atelier-portal/internal/handler"
	"github.com/karimdhz/atelier-portal/internal/jobs"
	"github.com/karimdhz/atelier-portal/internal/middleware"
	"github.com/karimdhz/atelier-portal/internal/queue"
	"github.com/karimdhz/atelier-portal/internal/realtime"
	"github.com/karimdhz/atelier-portal/internal/repository"
	"github.com/karimdhz/atelier-portal/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	mailer := email.New(cfg)
	hub := realtime.NewHub()

	authH := handler.NewAuthHandler(cfg, users, mailer)
	userH := handler.NewUserHandler(cfg, users, mailer)

	e := echo.New()
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	// Redis-backed middleware degrades to pass-through when Redis is down.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; rate limiting and caching disabled")
	}
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	e.Use(middleware.NewRedisCache(config.LoadCacheConfig(), rdb))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret, users)
	router.RegisterUsers(e, userH, cfg.JWTSecret, users)
	router.RegisterRealtime(e, hub, cfg.JWTSecret)

	// Background consumer relaying account events to connected clients.
	go func() {
		if err := queue.StartAccountConsumer(hub); err != nil {
			log.Printf("account consumer stopped: %v", err)
		}
	}()

	sweeper := jobs.StartSweeper(users, hub)
	defer sweeper.Stop()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
