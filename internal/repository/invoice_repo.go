package repository

import (
	"errors"
	"time"

	"invoice-ingestion-backend/internal/errs"
	"invoice-ingestion-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// Expose DB if needed
func (r *InvoiceRepository) DB() *gorm.DB {
	return r.db
}

func (r *InvoiceRepository) Create(inv *models.Invoice) error {
	return r.db.Create(inv).Error
}

func (r *InvoiceRepository) Save(inv *models.Invoice) error {
	return r.db.Save(inv).Error
}

// GetByID fetches a single invoice by ID.
func (r *InvoiceRepository) GetByID(id uuid.UUID) (*models.Invoice, error) {
	var inv models.Invoice
	err := r.db.First(&inv, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// GetByPath fetches the invoice tracking a file path, if any. File paths are
// unique across invoices, so re-ingesting a path updates the existing row.
func (r *InvoiceRepository) GetByPath(path string) (*models.Invoice, error) {
	var inv models.Invoice
	err := r.db.First(&inv, "file_path = ?", path).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *InvoiceRepository) ListByCategory(category string) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.Where("category = ?", category).Order("invoice_date DESC").Find(&invoices).Error
	return invoices, err
}

func (r *InvoiceRepository) ListAll() ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.Find(&invoices).Error
	return invoices, err
}

func (r *InvoiceRepository) ListPending(limit int) ([]models.Invoice, error) {
	var invoices []models.Invoice
	q := r.db.Where("ingestion_status = ?", models.StatusPending).Order("updated_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&invoices).Error
	return invoices, err
}

// Claim atomically moves an invoice from pending to processing. Returns false
// when the invoice was not pending, which keeps processing single-flight per
// invoice even with multiple workers.
func (r *InvoiceRepository) Claim(id uuid.UUID) (bool, error) {
	result := r.db.Model(&models.Invoice{}).
		Where("id = ? AND ingestion_status = ?", id, models.StatusPending).
		Updates(map[string]interface{}{
			"ingestion_status": models.StatusProcessing,
			"updated_at":       time.Now().UTC(),
		})
	return result.RowsAffected == 1, result.Error
}

// UpdateIfProcessing applies the outcome of a processing attempt, but only if
// the invoice is still in processing. A reprocess request that re-marked the
// invoice pending mid-flight wins: the attempt's result is discarded and the
// next scheduling pass picks the invoice up again.
func (r *InvoiceRepository) UpdateIfProcessing(id uuid.UUID, updates map[string]interface{}) (bool, error) {
	updates["updated_at"] = time.Now().UTC()
	result := r.db.Model(&models.Invoice{}).
		Where("id = ? AND ingestion_status = ?", id, models.StatusProcessing).
		Updates(updates)
	return result.RowsAffected == 1, result.Error
}

// MarkPending re-enqueues one invoice regardless of its current status.
func (r *InvoiceRepository) MarkPending(id uuid.UUID) error {
	result := r.db.Model(&models.Invoice{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"ingestion_status": models.StatusPending,
			"updated_at":       time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// MarkAllPending re-enqueues every invoice, optionally scoped to a category.
func (r *InvoiceRepository) MarkAllPending(category string) (int64, error) {
	// gorm refuses unconditional updates, so the unscoped case needs an
	// always-true predicate.
	q := r.db.Model(&models.Invoice{}).Where("1 = 1")
	if category != "" {
		q = q.Where("category = ?", category)
	}
	result := q.Updates(map[string]interface{}{
		"ingestion_status": models.StatusPending,
		"updated_at":       time.Now().UTC(),
	})
	return result.RowsAffected, result.Error
}

// Delete removes an invoice; its overrides go with it.
func (r *InvoiceRepository) Delete(id uuid.UUID) error {
	if err := r.db.Where("invoice_id = ?", id).Delete(&models.InvoiceOverride{}).Error; err != nil {
		return err
	}
	result := r.db.Delete(&models.Invoice{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errs.ErrNotFound
	}
	return nil
}
