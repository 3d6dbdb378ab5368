package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/zapflow/zapflow-api/src/config"
	"github.com/zapflow/zapflow-api/src/database"
	"github.com/zapflow/zapflow-api/src/handlers"
	"github.com/zapflow/zapflow-api/src/logging"
	"github.com/zapflow/zapflow-api/src/middleware"
	"github.com/zapflow/zapflow-api/src/ratelimit"
	"github.com/zapflow/zapflow-api/src/repositories"
	"github.com/zapflow/zapflow-api/src/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logging
	logging.Setup(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	log.Info().
		Int("port", cfg.Port).
		Str("log_level", cfg.LogLevel).
		Msg("starting server")

	// Initialize database
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := database.New(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	log.Info().Msg("database connected")

	// Initialize JWT secret in middleware
	if err := middleware.SetJWTSecret(cfg.JWTSecret); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize JWT secret")
	}

	// Initialize stores
	keyStore := repositories.NewPostgresAPIKeyStore(db.GetPool())
	instanceStore := repositories.NewPostgresInstanceStore(db.GetPool())

	// Initialize services
	authService := services.NewAuthService(keyStore, cfg.ExternalAPIKey, cfg.LegacyKeyEnabled)
	keyService := services.NewAPIKeyService(keyStore, instanceStore)
	gateway := services.NewEvolutionGateway(cfg.EvolutionURL, cfg.EvolutionAPIKey)

	if cfg.LegacyKeyEnabled {
		log.Warn().Msg("legacy static API key is enabled; callers using it bypass per-key scoping")
	}

	// Fixed-window rate limit store for the external message path
	limiter := ratelimit.NewMemoryStore()
	defer limiter.Stop()

	// Create Gin router
	router := gin.New()

	// Add middleware
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(gin.Recovery())

	// CORS for the management dashboard origins
	if cfg.AllowedOrigins != "" {
		corsConfig := cors.Config{
			AllowOrigins:     strings.Split(cfg.AllowedOrigins, ","),
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}
		router.Use(cors.New(corsConfig))
	}

	// Setup routes
	setupRoutes(router, db, authService, keyService, gateway, instanceStore, limiter, cfg)

	// Create HTTP server with timeouts
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Int("port", cfg.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	// Graceful shutdown with timeout
	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}

	log.Info().Msg("server shut down successfully")
}

func setupRoutes(
	router *gin.Engine,
	db *database.Database,
	authService *services.AuthService,
	keyService *services.APIKeyService,
	gateway services.WhatsAppGateway,
	instanceStore repositories.InstanceStore,
	limiter ratelimit.Store,
	cfg *config.Config,
) {
	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db)
	messageHandler := handlers.NewMessageHandler(gateway)
	keyHandler := handlers.NewKeyHandler(keyService)
	instanceHandler := handlers.NewInstanceHandler(instanceStore, gateway)
	webhookHandler := handlers.NewWebhookHandler(instanceStore)

	// Health check endpoints
	router.GET("/health", healthHandler.HandleHealth)
	router.GET("/ready", healthHandler.HandleReady)

	// External API: key-authenticated, rate-limited message sending
	external := router.Group("/external")
	external.Use(middleware.ExternalAuthMiddleware(authService, limiter, cfg.DefaultRateLimitPerMinute))
	{
		external.POST("/messages", messageHandler.HandleSend)
	}

	// Management API: session-authenticated key and instance lifecycle
	api := router.Group("/api")
	api.Use(middleware.UserAuthMiddleware())
	api.Use(middleware.NewManagementRateLimitMiddleware(middleware.ManagementRateLimitConfig{
		RequestsPerMinute: cfg.ManagementRequestsPerMinute,
		Burst:             cfg.ManagementBurst,
	}))
	{
		api.POST("/keys", keyHandler.HandleCreate)
		api.GET("/keys", keyHandler.HandleList)
		api.POST("/keys/:id/rotate", keyHandler.HandleRotate)
		api.DELETE("/keys/:id", keyHandler.HandleRevoke)

		api.POST("/instances", instanceHandler.HandleCreate)
		api.GET("/instances", instanceHandler.HandleList)
	}

	// Gateway callbacks
	router.POST("/webhooks/evolution",
		middleware.WebhookSignatureMiddleware(cfg.WebhookSecret, cfg.EnableWebhookSignatureVerification),
		webhookHandler.HandleEvolutionEvent)
}
