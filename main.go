package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"vmestego-backend/internal/auth"
	"vmestego-backend/internal/config"
	"vmestego-backend/internal/handlers"
	"vmestego-backend/internal/services"
	"vmestego-backend/internal/storage"
	"vmestego-backend/internal/telemetry"
)

func main() {

	// Load .env variables
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}
	log.Println("🔐 Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing
	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTelEndpoint, cfg.OTelServiceName)
	if err != nil {
		log.Fatalf("❌ Failed to set up tracing: %v", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Printf("⚠️ Tracing shutdown: %v", err)
		}
	}()

	// Connect DB
	db, err := storage.Open(cfg.DB.DSN())
	if err != nil {
		log.Fatalf("❌ Failed to connect: %v", err)
	}
	log.Println("✅ Database connected and migrated successfully")

	store := storage.NewS3Store(cfg.S3)
	tokens := auth.NewTokens(cfg.JWT.Secret, cfg.JWT.TTL)

	notifier := services.NewNotificationService(db)
	h := &handlers.Handler{
		Users:         services.NewUserService(db, store, tokens),
		Events:        services.NewEventService(db, store),
		Friends:       services.NewFriendService(db, store, notifier),
		Invitations:   services.NewInvitationService(db, store, notifier),
		Comments:      services.NewCommentService(db),
		Notifications: notifier,
	}

	// Start Gin
	r := gin.Default()
	r.Use(otelgin.Middleware(cfg.OTelServiceName))

	// CORS
	r.Use(handlers.CORSMiddleware(cfg.CORSOrigins))

	// Routes
	handlers.SetupRoutes(r, h, tokens)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("🚀 Server running on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("🛑 Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ Graceful shutdown failed: %v", err)
	}
}
