package repository

import (
	"log"

	"invoice-ingestion-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProcessingLogRepository struct {
	db *gorm.DB
}

func NewProcessingLogRepository(db *gorm.DB) *ProcessingLogRepository {
	return &ProcessingLogRepository{db: db}
}

// Append writes one audit record. The log is purely diagnostic: a failed
// write is reported to the process log but never fails the pipeline.
func (r *ProcessingLogRepository) Append(invoiceID *uuid.UUID, fileHash, processType, status, message string) {
	entry := models.ProcessingLog{
		ID:          uuid.New(),
		InvoiceID:   invoiceID,
		FileHash:    fileHash,
		ProcessType: processType,
		Status:      status,
		Message:     message,
	}
	if err := r.db.Create(&entry).Error; err != nil {
		log.Println("processing log write failed:", err)
	}
}

func (r *ProcessingLogRepository) ListByInvoice(invoiceID uuid.UUID) ([]models.ProcessingLog, error) {
	var entries []models.ProcessingLog
	err := r.db.Where("invoice_id = ?", invoiceID).Order("created_at DESC").Find(&entries).Error
	return entries, err
}
