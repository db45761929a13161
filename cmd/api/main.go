package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campusride/campusride-backend/internal/config"
	"github.com/campusride/campusride-backend/internal/database"
	"github.com/campusride/campusride-backend/internal/handlers"
	"github.com/campusride/campusride-backend/internal/server"
	"github.com/campusride/campusride-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

const bookingCacheTTL = 5 * time.Minute

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using the environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	db, err := database.InitDB(cfg.DSN())
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	rdb, err := services.InitRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	push, err := services.InitFirebase(ctx, cfg.FirebaseServiceAccountPath)
	if err != nil {
		log.Printf("Firebase initialization warning: %v", err)
		push = &services.PushSender{}
	}

	storage, err := services.InitStorage(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	if err := handlers.RegisterValidators(); err != nil {
		log.Fatalf("Failed to register validators: %v", err)
	}

	hub := services.NewHub()
	hub.EnableRelay(rdb)
	go hub.Run(ctx)
	go hub.Relay(ctx, rdb)

	sessions := services.NewSessionStore(rdb, cfg.JWTTTL)
	cache := services.NewBookingCache(rdb, bookingCacheTTL)
	notifier := services.NewNotifier(db, hub, push)

	scheduler, err := services.StartScheduler(&services.BookingJobs{
		DB:       db,
		Notifier: notifier,
		Cache:    cache,
	}, cfg.ExpireJobInterval)
	if err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	router := server.NewRouter(server.Deps{
		Config:   cfg,
		DB:       db,
		Redis:    rdb,
		Hub:      hub,
		Sessions: sessions,
		Storage:  storage,
		Push:     push,
		Notifier: notifier,
		Bookings: services.NewBookingService(db, notifier, cache),
		Trips:    services.NewTripService(db, notifier, cache, push),
		Reviews:  services.NewReviewService(db, notifier),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if err := scheduler.Shutdown(); err != nil {
		log.Printf("Scheduler shutdown error: %v", err)
	}
	if err := rdb.Close(); err != nil {
		log.Printf("Redis close error: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	log.Println("Server stopped")
}
