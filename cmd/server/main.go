package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"invoice-ingestion-backend/internal/config"
	"invoice-ingestion-backend/internal/models"
	"invoice-ingestion-backend/internal/repository"
	"invoice-ingestion-backend/internal/routes"
	"invoice-ingestion-backend/internal/services/extraction"
	"invoice-ingestion-backend/internal/services/ocr"
	"invoice-ingestion-backend/internal/services/pipeline"
	"invoice-ingestion-backend/internal/services/scanner"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on system env")
	}

	db := config.InitDB()

	db.AutoMigrate(
		&models.Invoice{},
		&models.InvoiceOverride{},
		&models.Setting{},
		&models.ProcessingLog{},
	)

	invoiceRepo := repository.NewInvoiceRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	logRepo := repository.NewProcessingLogRepository(db)

	ocrService := ocr.NewService(os.Getenv("AZURE_CV_ENDPOINT"), os.Getenv("AZURE_CV_KEY"))
	extractor := extraction.NewOpenAIExtractor()
	hub := pipeline.NewHub()
	scan := scanner.New(invoiceRepo, logRepo)

	pl := pipeline.New(invoiceRepo, settingRepo, logRepo, scan, ocrService, extractor, hub, pipeline.Config{
		Workers:        envInt("WORKERS", 4),
		OCRTimeout:     envDuration("OCR_TIMEOUT", 60*time.Second),
		ExtractTimeout: envDuration("EXTRACT_TIMEOUT", 90*time.Second),
	})

	// Scan loop: startup scan, then every interval or on demand.
	go pl.Run(context.Background(), envDuration("SCAN_INTERVAL", 2*time.Minute))

	r := gin.Default()
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, db, pl, extractor, hub)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r.Run(":" + port)
}

func envInt(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if v, err := time.ParseDuration(raw); err == nil {
			return v
		}
	}
	return fallback
}
