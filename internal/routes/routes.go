package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	handler "invoice-ingestion-backend/internal/handlers"
	"invoice-ingestion-backend/internal/repository"
	"invoice-ingestion-backend/internal/services/dashboard"
	"invoice-ingestion-backend/internal/services/extraction"
	"invoice-ingestion-backend/internal/services/pipeline"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, pl *pipeline.Pipeline, extractor extraction.FieldExtractor, hub *pipeline.Hub) {
	invoiceRepo := repository.NewInvoiceRepository(db)
	overrideRepo := repository.NewOverrideRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	logRepo := repository.NewProcessingLogRepository(db)

	dashboardService := dashboard.New(invoiceRepo, overrideRepo)

	h := handler.New(invoiceRepo, overrideRepo, settingRepo, logRepo, pl, dashboardService, extractor, hub)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api.GET("/dashboard", h.GetDashboard)

	// Invoice routes
	invoices := api.Group("/invoices")
	{
		invoices.GET("", h.ListInvoices)
		invoices.GET("/:id", h.GetInvoiceDetail)
		invoices.PUT("/:id/fields/:field", h.UpdateField)
		invoices.DELETE("/:id/fields/:field", h.ClearOverride)
		invoices.DELETE("/:id/fields", h.ClearOverrides)
		invoices.POST("/:id/reprocess", h.ReprocessInvoice)
		invoices.POST("/:id/open", h.OpenFile)
	}

	api.POST("/reprocess", h.ReprocessAll)
	api.POST("/scan", h.TriggerScan)

	// Settings routes
	api.GET("/settings", h.GetSettings)
	api.PUT("/settings", h.SaveSettings)
	api.POST("/settings/test-key", h.TestKey)

	// Event stream for the presentation layer
	api.GET("/events", h.Events)
}
