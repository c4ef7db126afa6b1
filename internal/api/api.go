// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/restock-advisor/internal/api/handlers"
	"github.com/andresuchdata/restock-advisor/internal/api/middleware"
	"github.com/andresuchdata/restock-advisor/internal/drive"
	"github.com/andresuchdata/restock-advisor/internal/ingest"
	"github.com/andresuchdata/restock-advisor/internal/pipeline"
	"github.com/andresuchdata/restock-advisor/internal/repository"
	"github.com/andresuchdata/restock-advisor/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Services struct {
	Restock      *service.RestockService
	Orchestrator *pipeline.Orchestrator
	Runs         repository.RunRepository
	Importer     *ingest.Importer
	DriveFiles   drive.FileSource
	DriveSync    *drive.Syncer
	DriveFolder  string
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services == nil {
		return router
	}

	if services.Restock != nil {
		restockHandler := handlers.NewRestockHandler(services.Restock)
		productGroup := apiGroup.Group("/products/:id")
		{
			productGroup.GET("/forecast", restockHandler.GetForecast)
			productGroup.GET("/decision", restockHandler.GetDecision)
			productGroup.POST("/train", restockHandler.TrainProduct)
			productGroup.GET("/evaluations", restockHandler.GetEvaluations)
			productGroup.GET("/trend", restockHandler.GetTrend)
		}

		modelGroup := apiGroup.Group("/models/global")
		{
			modelGroup.POST("/train", restockHandler.TrainGlobal)
			modelGroup.GET("/evaluations", restockHandler.GetGlobalEvaluations)
		}

		alertHandler := handlers.NewAlertHandler(services.Restock)
		alertGroup := apiGroup.Group("/alerts")
		{
			alertGroup.GET("", alertHandler.ListAlerts)
			alertGroup.GET("/summary", alertHandler.GetSummary)
			alertGroup.POST("/:id/acknowledge", alertHandler.Acknowledge)
		}
	}

	if services.Orchestrator != nil && services.Runs != nil {
		runHandler := handlers.NewRunHandler(services.Orchestrator, services.Runs)
		apiGroup.POST("/runs", runHandler.StartRun)
		apiGroup.GET("/runs/:id", runHandler.GetRun)
	}

	if services.Importer != nil {
		importHandler := handlers.NewImportHandler(services.Importer, services.DriveFiles, services.DriveSync, services.DriveFolder)
		importGroup := apiGroup.Group("/imports")
		{
			importGroup.POST("/sales", importHandler.UploadSales)
			importGroup.GET("/drive/files", importHandler.ListDriveFiles)
			importGroup.POST("/drive", importHandler.SyncDrive)
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
