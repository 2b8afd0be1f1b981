package main

import (
	"fmt"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"genomic-report-server/internal/backend"
	"genomic-report-server/internal/composer"
	"genomic-report-server/internal/config"
	"genomic-report-server/internal/models"
	"genomic-report-server/internal/report"
	"genomic-report-server/internal/repository"
	"genomic-report-server/internal/routes"
	"genomic-report-server/internal/utils"
)

func main() {
	// Load environment variables; a missing .env is fine in containers
	envErr := godotenv.Load()

	// Initialize configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Error loading config: %v", err)
	}

	logger := utils.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if envErr != nil {
		logger.WithError(envErr).Debug("No .env file loaded")
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create a DatabaseConfig for models
	modelDbConfig := models.DatabaseConfig{
		DSN: cfg.Database.DSN,
	}

	// Initialize database connection
	db, err := models.InitDB(modelDbConfig)
	if err != nil {
		logger.Fatalf("Error connecting to database: %v", err)
	}

	client := backend.NewClient(backend.Config{
		BaseURL:   cfg.Backend.BaseURL,
		Timeout:   cfg.Backend.Timeout,
		RateLimit: cfg.Backend.RateLimit,
		Burst:     cfg.Backend.Burst,
		Breaker: backend.BreakerConfig{
			MaxRequests:      cfg.Backend.Breaker.MaxRequests,
			Interval:         cfg.Backend.Breaker.Interval,
			Timeout:          cfg.Backend.Breaker.Timeout,
			FailureThreshold: cfg.Backend.Breaker.FailureThreshold,
		},
	}, logger)

	var cache report.Cache = report.NoopCache{}
	if cfg.Cache.RedisURL != "" {
		redisCache, err := report.NewRedisCache(cfg.Cache.RedisURL, cfg.Cache.TTL)
		if err != nil {
			logger.WithError(err).Warn("Report cache disabled")
		} else {
			defer redisCache.Close()
			cache = redisCache
		}
	}

	views, err := composer.NewRegistry(cfg.Composer.ViewCapacity, nil)
	if err != nil {
		logger.Fatalf("Error creating view registry: %v", err)
	}

	// Initialize Gin router
	router := gin.Default()

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	routes.SetupRoutes(router, routes.Dependencies{
		Config:    cfg,
		Logger:    logger,
		Reports:   report.NewLoader(client, cache, logger),
		Analysis:  client,
		Confirmer: client,
		Orders:    repository.NewOrderRepository(db),
		Views:     views,
	})

	// Start server
	serverAddr := fmt.Sprintf(":%s", cfg.Port)
	logger.WithField("port", cfg.Port).Info("Server running")
	if err := router.Run(serverAddr); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
