package config

import (
	"fmt"
	"os"
	"strconv"
)

// Version is the application version reported by the health endpoint.
const Version = "1.0.0"

// Config holds all configuration for our application
type Config struct {
	Port               string
	Origin             string
	Environment        string
	Database           DatabaseConfig
	UploadDir          string
	MaxUploadMB        int
	ThumbnailWidth     int
	ThumbnailHeight    int
	ModelServerURL     string
	ModelTimeoutSecond int
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	DSN      string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load database configuration
	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "3306"),
		Username: getEnv("DB_USERNAME", "root"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "mammoscreen"),
	}

	// Build DSN (Data Source Name) for MySQL connection
	dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)

	maxUploadMB, err := strconv.Atoi(getEnv("MAX_UPLOAD_MB", "50"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_MB: %w", err)
	}

	thumbWidth, err := strconv.Atoi(getEnv("THUMBNAIL_WIDTH", "300"))
	if err != nil {
		return nil, fmt.Errorf("invalid THUMBNAIL_WIDTH: %w", err)
	}

	thumbHeight, err := strconv.Atoi(getEnv("THUMBNAIL_HEIGHT", "300"))
	if err != nil {
		return nil, fmt.Errorf("invalid THUMBNAIL_HEIGHT: %w", err)
	}

	modelTimeout, err := strconv.Atoi(getEnv("MODEL_TIMEOUT_SECONDS", "120"))
	if err != nil {
		return nil, fmt.Errorf("invalid MODEL_TIMEOUT_SECONDS: %w", err)
	}

	// Return complete configuration
	return &Config{
		Port:               getEnv("PORT", "8000"),
		Origin:             getEnv("ORIGIN", "http://localhost:3000"),
		Environment:        getEnv("APP_ENV", "development"),
		Database:           dbConfig,
		UploadDir:          getEnv("UPLOAD_DIR", "uploads"),
		MaxUploadMB:        maxUploadMB,
		ThumbnailWidth:     thumbWidth,
		ThumbnailHeight:    thumbHeight,
		ModelServerURL:     getEnv("MODEL_SERVER_URL", "http://localhost:8500"),
		ModelTimeoutSecond: modelTimeout,
	}, nil
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
