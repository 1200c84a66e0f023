package models

import (
	"time"

	"github.com/google/uuid"
)

// Process types recorded in the log.
const (
	ProcessScan      = "scan"
	ProcessOCR       = "ocr"
	ProcessExtract   = "extract"
	ProcessReprocess = "reprocess"
)

// Log statuses.
const (
	LogOK    = "ok"
	LogError = "error"
)

// ProcessingLog is an append-only audit record of one pipeline attempt or
// outcome. The invoice reference is nullable: a scan failure may happen before
// any invoice exists, and the record may outlive its invoice.
type ProcessingLog struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceID   *uuid.UUID `gorm:"type:uuid;index" json:"invoice_id"`
	FileHash    string     `gorm:"size:64" json:"file_hash"`
	ProcessType string     `gorm:"index;size:16" json:"process_type"`
	Status      string     `gorm:"index;size:8" json:"status"`
	Message     string     `gorm:"type:text" json:"message"`
	CreatedAt   time.Time  `json:"created_at"`
}
