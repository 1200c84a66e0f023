package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Ingestion statuses form the pipeline state machine.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusError      = "error"
)

// Payment statuses on the invoice itself.
const (
	PaymentOpen = "open"
	PaymentPaid = "paid"
)

const (
	CategoryRevenue = "revenue"
	CategoryPayable = "payable"
)

const DefaultCurrency = "EUR"

// Invoice is one ingested document and its extracted/resolved data.
// Business date fields are normalized YYYY-MM-DD strings and amounts are
// two-decimal strings, so free-text overrides can replace any of them.
type Invoice struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Category         string         `gorm:"index;check:category IN ('revenue','payable')" json:"category"`
	FilePath         *string        `gorm:"uniqueIndex;size:1024" json:"file_path"`
	FileHash         string         `gorm:"index;size:64" json:"file_hash"`
	FileModifiedAt   time.Time      `json:"file_modified_at"`
	IngestionStatus  string         `gorm:"index" json:"ingestion_status"`
	OCRText          *string        `gorm:"type:text" json:"ocr_text"`
	ExtractedJSON    datatypes.JSON `json:"extracted_json"`
	ConfidenceScore  float64        `json:"confidence_score"`
	InvoiceNumber    *string        `json:"invoice_number"`
	InvoiceDate      *string        `gorm:"index" json:"invoice_date"`
	DueDate          *string        `json:"due_date"`
	CounterpartyName *string        `json:"counterparty_name"`
	TotalAmount      string         `json:"total_amount"`
	Currency         string         `json:"currency"`
	TaxAmount        *string        `json:"tax_amount"`
	NetAmount        *string        `json:"net_amount"`
	Status           string         `gorm:"index" json:"status"`
	PaidAt           *string        `json:"paid_at"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`

	Overrides []InvoiceOverride `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// InvoiceSummary is the list-view projection of an invoice after override
// resolution.
type InvoiceSummary struct {
	ID               uuid.UUID `json:"id"`
	InvoiceDate      *string   `json:"invoice_date"`
	CounterpartyName *string   `json:"counterparty_name"`
	TotalAmount      string    `json:"total_amount"`
	Status           string    `json:"status"`
	IngestionStatus  string    `json:"ingestion_status"`
	ConfidenceScore  float64   `json:"confidence_score"`
	FilePath         *string   `json:"file_path"`
}

// InvoiceDetail is the detail-view payload: the resolved invoice plus the raw
// overrides and the processing history behind it.
type InvoiceDetail struct {
	Invoice   Invoice           `json:"invoice"`
	Overrides []InvoiceOverride `json:"overrides"`
	Logs      []ProcessingLog   `json:"logs"`
}
