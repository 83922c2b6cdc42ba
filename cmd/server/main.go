package main // Entry point package

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-slot-reservation/internal/config"
	"github.com/iliyamo/parking-slot-reservation/internal/database"
	"github.com/iliyamo/parking-slot-reservation/internal/handler"
	"github.com/iliyamo/parking-slot-reservation/internal/queue"
	"github.com/iliyamo/parking-slot-reservation/internal/repository"
	"github.com/iliyamo/parking-slot-reservation/internal/router"
	"github.com/iliyamo/parking-slot-reservation/internal/scheduler"
	"github.com/iliyamo/parking-slot-reservation/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment")
	}
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional: with a nil client rate limiting and caching
	// degrade to pass-throughs.
	rdb := config.NewRedisClient()

	sessionRepo := repository.NewSessionRepo(db)
	slotRepo := repository.NewSlotRepo(db)
	vehicleRepo := repository.NewVehicleRepo(db)
	rateRepo := repository.NewRateRepo(db)
	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)

	// Outbound notifications: buffered dispatcher publishing to RabbitMQ,
	// plus the in-process consumer that drains the queue into a log file.
	dispatcher := service.NewQueueDispatcher(cfg.NotifyBuffer, nil)
	dispatcher.Start()
	defer dispatcher.Close()
	go func() {
		if err := queue.StartNotificationConsumer(); err != nil {
			log.Printf("consumer: %v", err)
		}
	}()

	allocator := service.NewSlotAllocator(slotRepo)

	sched := scheduler.New(scheduler.Config{
		Interval:     cfg.SchedulerTick,
		EntryWindow:  cfg.EntryWindow,
		ExitWindow:   cfg.ExitWindow,
		OverdueGrace: cfg.OverdueGrace,
		ExpiryGrace:  cfg.ReservationExpiry,
	}, sessionRepo, dispatcher)

	sessions := service.NewSessionService(
		sessionRepo, allocator, vehicleRepo, rateRepo, userRepo, dispatcher, sched)

	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 30*time.Second)
	if err := sched.Seed(seedCtx); err != nil {
		log.Printf("scheduler: seed failed: %v", err)
	}
	cancelSeed()
	go sched.Run()
	defer sched.Stop()

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e, cfg, router.Handlers{
		Auth:     handler.NewAuthHandler(cfg, userRepo, tokenRepo),
		Sessions: handler.NewSessionHandler(sessions),
		Slots:    handler.NewSlotHandler(slotRepo),
		Vehicles: handler.NewVehicleHandler(vehicleRepo),
		Rates:    handler.NewRateHandler(rateRepo),
	}, rdb)

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
