// Command server runs the parking reservation API.
package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-spot-reservation/internal/config"
	"github.com/iliyamo/parking-spot-reservation/internal/database"
	"github.com/iliyamo/parking-spot-reservation/internal/handler"
	"github.com/iliyamo/parking-spot-reservation/internal/queue"
	"github.com/iliyamo/parking-spot-reservation/internal/repository"
	"github.com/iliyamo/parking-spot-reservation/internal/router"
	"github.com/iliyamo/parking-spot-reservation/internal/service"
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

	// Redis is optional: a nil client disables response caching and rate
	// limiting but the booking core keeps working.
	rdb := config.NewRedisClient()

	lots := repository.NewLotRepo(db)
	spots := repository.NewSpotRepo(db)
	bookings := repository.NewBookingRepo(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	dash := repository.NewDashboardRepo(db)

	h := router.Handlers{
		Auth:      handler.NewAuthHandler(cfg, users, tokens),
		Booking:   handler.NewBookingHandler(lots, spots, bookings),
		Admin:     handler.NewAdminHandler(lots, spots, bookings, users),
		Dashboard: handler.NewDashboardHandler(dash),
		Export:    handler.NewExportHandler(users),
		Public:    handler.NewPublicHandler(lots),
	}

	e := echo.New()
	e.HideBanner = true

	router.Register(e, cfg, rdb, h)

	// Background consumers and the job scheduler run for the life of the
	// process. Both consumers reconnect on broker failure.
	go func() {
		if err := queue.StartBookingAuditConsumer(); err != nil {
			log.Printf("audit consumer stopped: %v", err)
		}
	}()
	go func() {
		if err := service.StartExportWorker(bookings); err != nil {
			log.Printf("export worker stopped: %v", err)
		}
	}()
	cronRunner := service.NewScheduler(dash, cfg.ReminderDays).Start()
	defer cronRunner.Stop()

	log.Printf("starting server on :%s (env=%s)", cfg.Port, cfg.Env)
	if err := e.Start(":" + cfg.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
