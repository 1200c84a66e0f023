package repository

import (
	"time"

	"invoice-ingestion-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OverrideRepository struct {
	db *gorm.DB
}

func NewOverrideRepository(db *gorm.DB) *OverrideRepository {
	return &OverrideRepository{db: db}
}

// Set creates or replaces the override for (invoice, field). The conflict
// target is the unique (invoice_id, field_name) index, so a later override
// replaces the prior value instead of appending.
func (r *OverrideRepository) Set(invoiceID uuid.UUID, field, value string) error {
	ov := models.InvoiceOverride{
		ID:            uuid.New(),
		InvoiceID:     invoiceID,
		FieldName:     field,
		OverrideValue: value,
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "invoice_id"}, {Name: "field_name"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"override_value": value,
			"updated_at":     time.Now().UTC(),
		}),
	}).Create(&ov).Error
}

func (r *OverrideRepository) ListByInvoice(invoiceID uuid.UUID) ([]models.InvoiceOverride, error) {
	var overrides []models.InvoiceOverride
	err := r.db.Where("invoice_id = ?", invoiceID).Find(&overrides).Error
	return overrides, err
}

// ListAll returns every override grouped by invoice, for aggregation reads.
func (r *OverrideRepository) ListAll() (map[uuid.UUID][]models.InvoiceOverride, error) {
	var overrides []models.InvoiceOverride
	if err := r.db.Find(&overrides).Error; err != nil {
		return nil, err
	}
	byInvoice := make(map[uuid.UUID][]models.InvoiceOverride)
	for _, ov := range overrides {
		byInvoice[ov.InvoiceID] = append(byInvoice[ov.InvoiceID], ov)
	}
	return byInvoice, nil
}

// Clear deletes the override for (invoice, field). Deleting a missing
// override is a no-op; the returned count says whether anything was removed.
func (r *OverrideRepository) Clear(invoiceID uuid.UUID, field string) (int64, error) {
	result := r.db.Where("invoice_id = ? AND field_name = ?", invoiceID, field).
		Delete(&models.InvoiceOverride{})
	return result.RowsAffected, result.Error
}

// ClearAll deletes every override of one invoice. The invoice itself is
// untouched.
func (r *OverrideRepository) ClearAll(invoiceID uuid.UUID) error {
	return r.db.Where("invoice_id = ?", invoiceID).Delete(&models.InvoiceOverride{}).Error
}
