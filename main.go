package main

import (
	"fmt"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"mammoscreen-server/internal/config"
	"mammoscreen-server/internal/inference"
	"mammoscreen-server/internal/middleware"
	"mammoscreen-server/internal/models"
	"mammoscreen-server/internal/routes"
	"mammoscreen-server/internal/storage"
)

func main() {
	// Load environment variables; a missing .env is fine in production
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	// Initialize configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Create a DatabaseConfig for models
	modelDbConfig := models.DatabaseConfig{
		DSN: cfg.Database.DSN,
	}

	// Initialize database connection
	db, err := models.InitDB(modelDbConfig)
	if err != nil {
		log.Fatalf("Error connecting to database: %v", err)
	}

	// Initialize the upload file store
	store, err := storage.NewFileStore(storage.Options{
		BaseDir:         cfg.UploadDir,
		ThumbnailWidth:  cfg.ThumbnailWidth,
		ThumbnailHeight: cfg.ThumbnailHeight,
		MaxUploadBytes:  int64(cfg.MaxUploadMB) << 20,
	})
	if err != nil {
		log.Fatalf("Error initializing file store: %v", err)
	}

	// Initialize the model server client
	predictor := inference.NewClient(cfg.ModelServerURL, time.Duration(cfg.ModelTimeoutSecond)*time.Second)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger())

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Request-ID"}
	router.Use(cors.New(corsConfig))

	// Set up routes - passing DB and config to let routes.go create the handlers
	routes.SetupRoutes(router, db, store, predictor, cfg)

	// Start server
	serverAddr := fmt.Sprintf(":%s", cfg.Port)
	fmt.Printf("Server running on port %s\n", cfg.Port)
	if err := router.Run(serverAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
