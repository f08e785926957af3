package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/greenli8/idea-validator/internal/ai"
	"github.com/greenli8/idea-validator/internal/config"
	"github.com/greenli8/idea-validator/internal/database"
	"github.com/greenli8/idea-validator/internal/handler"
	"github.com/greenli8/idea-validator/internal/queue"
	"github.com/greenli8/idea-validator/internal/repository"
	"github.com/greenli8/idea-validator/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()

	users := repository.NewUserRepo(db)
	reports := repository.NewReportRepo(db)
	waitlist := repository.NewWaitlistRepo(db)

	gateway := ai.FromConfig(cfg)

	go queue.StartNotificationConsumer()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	router.Register(e, db, rdb, cfg, router.Handlers{
		Auth:     handler.NewAuthHandler(cfg, users),
		Analyze:  handler.NewAnalyzeHandler(users, gateway, reports),
		Reports:  handler.NewReportHandler(reports),
		Users:    handler.NewUserHandler(users),
		Payments: handler.NewPaymentHandler(cfg, users),
		Waitlist: handler.NewWaitlistHandler(waitlist),
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
