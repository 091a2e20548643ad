package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"mammoscreen-server/internal/analysis"
	"mammoscreen-server/internal/config"
	"mammoscreen-server/internal/handlers"
	"mammoscreen-server/internal/inference"
	"mammoscreen-server/internal/repository"
	"mammoscreen-server/internal/storage"
)

// SetupRoutes configures the application routes. The prediction service is
// passed in so tests can substitute a stub model backend.
func SetupRoutes(router *gin.Engine, db *gorm.DB, store *storage.FileStore, predictor inference.Service, cfg *config.Config) {
	// Initialize the analysis controller and handlers
	repo := repository.NewGormRepository(db)
	analysisService := analysis.NewService(repo, predictor, store)

	inferenceHandler := handlers.NewInferenceHandler(analysisService)
	patientHandler := handlers.NewPatientHandler(db)
	analysisHandler := handlers.NewAnalysisHandler(db, store)
	statisticsHandler := handlers.NewStatisticsHandler(db)
	searchHandler := handlers.NewSearchHandler(db)
	fileHandler := handlers.NewFileHandler(store)

	// Inference endpoints
	inferRoutes := router.Group("/infer")
	{
		inferRoutes.POST("/multi", inferenceHandler.InferMulti)
		inferRoutes.POST("/single", inferenceHandler.InferSingle)
	}

	// Patient CRUD endpoints
	patientRoutes := router.Group("/patients")
	{
		patientRoutes.POST("", patientHandler.CreatePatient)
		patientRoutes.GET("", patientHandler.ListPatients)
		patientRoutes.GET("/:id", patientHandler.GetPatientByID)
		patientRoutes.PATCH("/:id", patientHandler.UpdatePatient)
		patientRoutes.DELETE("/:id", patientHandler.DeletePatient)
	}

	// Analysis record endpoints
	analysisRoutes := router.Group("/analyses")
	{
		analysisRoutes.GET("", analysisHandler.ListAnalyses)
		analysisRoutes.GET("/:id", analysisHandler.GetAnalysisByID)
		analysisRoutes.PATCH("/:id", analysisHandler.UpdateAnalysis)
		analysisRoutes.DELETE("/:id", analysisHandler.DeleteAnalysis)
	}

	// Statistics endpoints
	statisticsRoutes := router.Group("/statistics")
	{
		statisticsRoutes.GET("", statisticsHandler.GetStatistics)
		statisticsRoutes.GET("/trends", statisticsHandler.GetTrends)
		statisticsRoutes.GET("/findings", statisticsHandler.GetFindingsBreakdown)
	}

	// Global search
	router.GET("/search", searchHandler.GlobalSearch)

	// Stored file serving
	fileRoutes := router.Group("/files")
	{
		fileRoutes.GET("/images/:year/:month/:day/:filename", fileHandler.ServeImage)
		fileRoutes.GET("/thumbnails/:year/:month/:day/:filename", fileHandler.ServeThumbnail)
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": config.Version})
	})
}
