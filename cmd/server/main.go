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

	"planner/internal/config"
	"planner/internal/database"
	"planner/internal/handlers"
	"planner/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional outside local development
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: No .env file loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}
	if cfg.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg.Database, !cfg.ReleaseMode)
	if err != nil {
		log.Fatal("Failed to initialize database: ", err)
	}
	store := database.NewStore(db)

	logger := log.Default()
	clock := services.NewClock(nil, cfg.Location)
	policy := services.RetentionPolicy{
		MaxUnread:      cfg.MaxUnreadNotifications,
		KeepRead:       cfg.KeepReadNotifications,
		SweepThreshold: cfg.SweepThreshold,
	}

	var mailer services.Mailer
	if cfg.Mail.APIKey != "" {
		mailer = services.NewSendGridMailer(cfg.Mail.APIKey, cfg.Mail.FromEmail, cfg.Mail.FromName)
	} else {
		log.Println("Warning: SENDGRID_API_KEY not set, digest mail will only be logged")
		mailer = services.NewLogMailer(logger)
	}

	recurrence := services.NewRecurrenceService(store, store, clock).WithLogger(logger)
	notifications := services.NewNotificationService(store, store, clock, policy).WithLogger(logger)
	scheduler := services.NewDigestScheduler(store, store, store, mailer, clock, cfg.DigestInterval).WithLogger(logger)
	search := services.NewSearchService(store).WithLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler.Start(ctx)

	router := gin.Default()
	router.SetTrustedProxies([]string{"127.0.0.1"})
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	handlers.New(store, recurrence, notifications, scheduler, search, clock, logger).RegisterRoutes(router)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s...", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error: Server shutdown failed: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

func corsConfig(origins []string) cors.Config {
	corsCfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", handlers.UserIDHeader},
		MaxAge:       12 * time.Hour,
	}
	for _, origin := range origins {
		if origin == "*" {
			corsCfg.AllowAllOrigins = true
			return corsCfg
		}
	}
	corsCfg.AllowOrigins = origins
	corsCfg.AllowCredentials = true
	return corsCfg
}
