package scanner

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"invoice-ingestion-backend/internal/errs"
	"invoice-ingestion-backend/internal/models"
	"invoice-ingestion-backend/internal/repository"
	"invoice-ingestion-backend/internal/services/hashing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Supported document extensions.
var supportedExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// Scanner enumerates the watched folders and upserts pending invoices. Each
// invocation re-enumerates from scratch; there is no persisted cursor. Files
// that disappeared from disk are left in the repository untouched.
type Scanner struct {
	invoices *repository.InvoiceRepository
	logs     *repository.ProcessingLogRepository
}

func New(invoices *repository.InvoiceRepository, logs *repository.ProcessingLogRepository) *Scanner {
	return &Scanner{invoices: invoices, logs: logs}
}

type Result struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Errors    int `json:"errors"`
}

func (r *Result) add(other Result) {
	r.Created += other.Created
	r.Updated += other.Updated
	r.Unchanged += other.Unchanged
	r.Errors += other.Errors
}

// Scan runs one cycle over both configured folders using the given settings
// snapshot. A folder that is unset or missing is skipped.
func (s *Scanner) Scan(settings models.Settings) Result {
	var total Result
	if settings.RevenueFolder != nil {
		total.add(s.ScanFolder(*settings.RevenueFolder, models.CategoryRevenue))
	}
	if settings.PayableFolder != nil {
		total.add(s.ScanFolder(*settings.PayableFolder, models.CategoryPayable))
	}
	return total
}

// ScanFolder enumerates one folder (depth 1) and applies the ingestion
// decision per file: unknown path creates a pending invoice, an unchanged
// hash is a no-op, a changed hash resets the invoice to pending. Unreadable
// files are logged and the scan continues with the next file.
func (s *Scanner) ScanFolder(folder, category string) Result {
	var result Result

	entries, err := os.ReadDir(folder)
	if err != nil {
		log.Println("scan folder:", err)
		s.logs.Append(nil, "", models.ProcessScan, models.LogError,
			errs.Sanitize((&errs.ScanError{Path: folder, Err: err}).Error()))
		result.Errors++
		return result
	}

	for _, entry := range entries {
		if entry.IsDir() || !supportedExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		path := filepath.Join(folder, entry.Name())
		if err := s.ingestFile(path, category, &result); err != nil {
			s.logs.Append(nil, "", models.ProcessScan, models.LogError, errs.Sanitize(err.Error()))
			result.Errors++
		}
	}
	return result
}

func (s *Scanner) ingestFile(path, category string, result *Result) error {
	hash, err := hashing.SHA256File(path)
	if err != nil {
		return &errs.ScanError{Path: path, Err: err}
	}
	info, err := os.Stat(path)
	if err != nil {
		return &errs.ScanError{Path: path, Err: err}
	}
	modifiedAt := info.ModTime().UTC()

	existing, err := s.invoices.GetByPath(path)
	if err != nil && err != errs.ErrNotFound {
		return err
	}

	if existing == nil {
		inv := models.Invoice{
			ID:              uuid.New(),
			Category:        category,
			FilePath:        &path,
			FileHash:        hash,
			FileModifiedAt:  modifiedAt,
			IngestionStatus: models.StatusPending,
			ExtractedJSON:   datatypes.JSON([]byte("{}")),
			TotalAmount:     "0.00",
			Currency:        models.DefaultCurrency,
			Status:          models.PaymentOpen,
		}
		if err := s.invoices.Create(&inv); err != nil {
			return err
		}
		result.Created++
		return nil
	}

	if existing.FileHash == hash {
		result.Unchanged++
		return nil
	}

	// Content changed: reset for re-extraction. Previous extracted fields
	// stay in place until a new extraction completes.
	existing.FileHash = hash
	existing.FileModifiedAt = modifiedAt
	existing.IngestionStatus = models.StatusPending
	existing.UpdatedAt = time.Now().UTC()
	if err := s.invoices.Save(existing); err != nil {
		return err
	}
	result.Updated++
	return nil
}
