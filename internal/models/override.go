package models

import (
	"time"

	"github.com/google/uuid"
)

// InvoiceOverride is a manual correction of one field of one invoice. At most
// one override exists per (invoice, field); a later value replaces the prior
// one. Values are free text and take precedence over extracted values.
type InvoiceOverride struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceID     uuid.UUID `gorm:"type:uuid;uniqueIndex:uniq_invoice_field" json:"invoice_id"`
	FieldName     string    `gorm:"uniqueIndex:uniq_invoice_field;size:64" json:"field_name"`
	OverrideValue string    `gorm:"type:text" json:"override_value"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// OverridableFields enumerates the invoice fields an override may target.
var OverridableFields = map[string]bool{
	"invoice_number":    true,
	"invoice_date":      true,
	"due_date":          true,
	"counterparty_name": true,
	"total_amount":      true,
	"currency":          true,
	"tax_amount":        true,
	"net_amount":        true,
	"status":            true,
	"paid_at":           true,
}
