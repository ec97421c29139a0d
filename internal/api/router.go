// Package api - Router setup
package api

import (
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupRouter creates and configures the Gin router.
func SetupRouter(app *App) *gin.Engine {
	r := gin.Default()

	// CORS configuration - properly configured for security
	// When credentials are used, specific origins must be provided (not *)
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// Get allowed origins from environment or use defaults for development
	allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if allowedOrigins != "" {
		corsConfig.AllowOrigins = strings.Split(allowedOrigins, ",")
	} else {
		// Development defaults - in production, set CORS_ALLOWED_ORIGINS
		corsConfig.AllowOrigins = []string{
			"http://localhost:3000",
			"http://localhost:8080",
			"http://127.0.0.1:3000",
			"http://127.0.0.1:8080",
		}
	}

	r.Use(cors.New(corsConfig))

	// Health check (no auth required)
	r.GET("/api/health", app.Health)

	// Authentication endpoints (no auth required)
	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/login", app.Login)
		authRoutes.POST("/refresh", app.RefreshToken)
	}

	authProtected := r.Group("/auth")
	authProtected.Use(app.RequireAuthMiddleware())
	{
		authProtected.GET("/me", app.GetMe)
	}

	// Everything under /api (except health) requires a bearer token.
	api := r.Group("/api")
	api.Use(app.RequireAuthMiddleware())
	{
		// Contracts
		api.GET("/contracts", app.ListContracts)
		api.POST("/contracts", app.CreateContract)
		api.GET("/contracts/:id", app.GetContract)
		api.PUT("/contracts/:id", app.UpdateContract)
		api.DELETE("/contracts/:id", app.DeleteContract)

		// Installments nested under a contract, then addressed directly
		api.POST("/contracts/:id/installments", app.CreateInstallment)
		api.GET("/installments", app.ListInstallments)
		api.PUT("/installments/:id", app.UpdateInstallment)
		api.DELETE("/installments/:id", app.DeleteInstallment)

		// Condition checklist per installment
		api.GET("/installments/:id/conditions", app.ListConditions)
		api.POST("/installments/:id/conditions", app.CreateCondition)
		api.POST("/conditions/:conditionID/toggle", app.ToggleCondition)
		api.POST("/conditions/:conditionID/backup-proof", app.UploadBackupProof)
		api.GET("/conditions/:conditionID/backup-proof", app.DownloadBackupProof)
		api.DELETE("/conditions/:conditionID/backup-proof", app.DeleteBackupProof)
		api.DELETE("/conditions/:conditionID", app.DeleteCondition)

		// CRM case import
		api.GET("/cases", app.FetchCases)
		api.POST("/cases/:caseID/save", app.SaveCase)

		// Attachments cached from the CRM
		api.GET("/attachments/:id/download", app.DownloadAttachment)

		// Events linked to a contract
		api.GET("/contracts/:id/events", app.ListEvents)
		api.POST("/contracts/:id/events", app.CreateEvent)
		api.DELETE("/events/:eventID", app.DeleteEvent)

		// Warehouse query generator
		api.GET("/analytics/query", app.AnalyticsQuery)
	}

	return r
}
