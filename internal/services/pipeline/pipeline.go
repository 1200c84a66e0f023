package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"invoice-ingestion-backend/internal/errs"
	"invoice-ingestion-backend/internal/models"
	"invoice-ingestion-backend/internal/repository"
	"invoice-ingestion-backend/internal/services/crypto"
	"invoice-ingestion-backend/internal/services/extraction"
	"invoice-ingestion-backend/internal/services/ocr"
	"invoice-ingestion-backend/internal/services/scanner"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Config struct {
	Workers        int
	OCRTimeout     time.Duration
	ExtractTimeout time.Duration
}

func (c *Config) defaults() {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.OCRTimeout <= 0 {
		c.OCRTimeout = 60 * time.Second
	}
	if c.ExtractTimeout <= 0 {
		c.ExtractTimeout = 90 * time.Second
	}
}

// Pipeline owns the per-document state machine: it claims pending invoices,
// runs OCR and field extraction under bounded timeouts, persists outcomes and
// emits events. Per-document processing is single-flight via the repository
// claim; across documents the workers run concurrently with no ordering.
type Pipeline struct {
	invoices  *repository.InvoiceRepository
	settings  *repository.SettingRepository
	logs      *repository.ProcessingLogRepository
	scanner   *scanner.Scanner
	ocr       ocr.TextExtractor
	extractor extraction.FieldExtractor
	hub       *Hub
	cfg       Config
	wake      chan struct{}
}

func New(
	invoices *repository.InvoiceRepository,
	settings *repository.SettingRepository,
	logs *repository.ProcessingLogRepository,
	sc *scanner.Scanner,
	textExtractor ocr.TextExtractor,
	fieldExtractor extraction.FieldExtractor,
	hub *Hub,
	cfg Config,
) *Pipeline {
	cfg.defaults()
	return &Pipeline{
		invoices:  invoices,
		settings:  settings,
		logs:      logs,
		scanner:   sc,
		ocr:       textExtractor,
		extractor: fieldExtractor,
		hub:       hub,
		cfg:       cfg,
		wake:      make(chan struct{}, 1),
	}
}

// Run is the scan/extraction loop: every interval (or on demand) it reads a
// fresh settings snapshot, scans the watched folders and drains pending
// invoices. Settings are never re-read mid-cycle.
func (p *Pipeline) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-p.wake:
		}
		p.runCycle(ctx)
	}
}

func (p *Pipeline) runCycle(ctx context.Context) {
	settings, err := p.settings.Load()
	if err != nil {
		log.Println("load settings:", err)
		return
	}
	p.scanner.Scan(settings)
	p.RunPending(ctx, settings)
}

// ScanNow runs one scan synchronously and schedules processing of whatever it
// enqueued.
func (p *Pipeline) ScanNow() (scanner.Result, error) {
	settings, err := p.settings.Load()
	if err != nil {
		return scanner.Result{}, err
	}
	result := p.scanner.Scan(settings)
	p.Wake()
	return result, nil
}

// Wake nudges the loop without waiting for the next tick.
func (p *Pipeline) Wake() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// RunPending claims and processes every pending invoice with the worker
// pool. Returns the number of attempts that ran.
func (p *Pipeline) RunPending(ctx context.Context, settings models.Settings) int {
	pending, err := p.invoices.ListPending(0)
	if err != nil {
		log.Println("list pending:", err)
		return 0
	}
	if len(pending) == 0 {
		return 0
	}

	jobs := make(chan models.Invoice)
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ran int
	)
	for i := 0; i < p.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for inv := range jobs {
				if p.processOne(ctx, inv, settings) {
					mu.Lock()
					ran++
					mu.Unlock()
				}
			}
		}()
	}
	for _, inv := range pending {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ran
		case jobs <- inv:
		}
	}
	close(jobs)
	wg.Wait()
	return ran
}

// processOne runs one extraction attempt. Returns false when the claim was
// lost to a concurrent attempt.
func (p *Pipeline) processOne(ctx context.Context, inv models.Invoice, settings models.Settings) bool {
	claimed, err := p.invoices.Claim(inv.ID)
	if err != nil {
		log.Println("claim:", err)
		return false
	}
	if !claimed {
		return false
	}

	if inv.FilePath == nil {
		p.fail(inv, models.ProcessOCR, errors.New("file not found"))
		return true
	}
	path := *inv.FilePath
	if _, err := os.Stat(path); err != nil {
		p.fail(inv, models.ProcessOCR, fmt.Errorf("file not found: %s", path))
		return true
	}

	ocrCtx, cancelOCR := context.WithTimeout(ctx, p.cfg.OCRTimeout)
	text, err := p.ocr.ExtractText(ocrCtx, path, settings.OCRLanguage)
	cancelOCR()
	if err != nil {
		p.fail(inv, models.ProcessOCR, err)
		return true
	}
	p.logs.Append(&inv.ID, inv.FileHash, models.ProcessOCR, models.LogOK, "")

	apiKey, err := p.resolveAPIKey(settings)
	if err != nil {
		p.fail(inv, models.ProcessExtract, err)
		return true
	}

	extractCtx, cancelExtract := context.WithTimeout(ctx, p.cfg.ExtractTimeout)
	data, raw, err := p.extractor.Extract(extractCtx, apiKey, text)
	cancelExtract()
	if err != nil {
		p.fail(inv, models.ProcessExtract, err)
		return true
	}

	// Degraded-success policy: a payload without a total amount must never
	// present itself as finished to the aggregation engine.
	if data.TotalAmount == nil {
		p.fail(inv, models.ProcessExtract, errors.New("incomplete extraction: total amount missing"))
		return true
	}

	updates := map[string]interface{}{
		"ocr_text":          text,
		"extracted_json":    datatypes.JSON(raw),
		"confidence_score":  clampConfidence(derefFloat(data.ConfidenceScore)),
		"invoice_number":    data.InvoiceNumber,
		"invoice_date":      normalizeDate(data.InvoiceDate),
		"due_date":          normalizeDate(data.DueDate),
		"counterparty_name": data.CounterpartyName,
		"total_amount":      formatAmount(*data.TotalAmount),
		"tax_amount":        formatAmountPtr(data.TaxAmount),
		"net_amount":        formatAmountPtr(data.NetAmount),
		"ingestion_status":  models.StatusDone,
	}
	if data.Currency != nil {
		updates["currency"] = *data.Currency
	}

	applied, err := p.invoices.UpdateIfProcessing(inv.ID, updates)
	if err != nil {
		log.Println("persist extraction:", err)
		return true
	}
	p.logs.Append(&inv.ID, inv.FileHash, models.ProcessExtract, models.LogOK, "")
	if applied {
		p.hub.Publish(Event{Type: EventInvoiceUpdated, InvoiceID: inv.ID.String()})
	}
	return true
}

// fail moves the invoice to error, keeping its last good extracted payload
// and confidence untouched, and records a sanitized diagnostic.
func (p *Pipeline) fail(inv models.Invoice, processType string, cause error) {
	message := errs.Sanitize(cause.Error())
	if _, err := p.invoices.UpdateIfProcessing(inv.ID, map[string]interface{}{
		"ingestion_status": models.StatusError,
	}); err != nil {
		log.Println("mark error:", err)
	}
	p.logs.Append(&inv.ID, inv.FileHash, processType, models.LogError, message)
	p.hub.Publish(Event{Type: EventProcessingError, InvoiceID: inv.ID.String(), Message: message})
}

func (p *Pipeline) resolveAPIKey(settings models.Settings) (string, error) {
	if settings.OpenAIAPIKey == nil || *settings.OpenAIAPIKey == "" {
		return "", errors.New("extraction credential missing")
	}
	stored := *settings.OpenAIAPIKey
	if crypto.IsEncrypted(stored) {
		return crypto.DecryptAPIKey(stored)
	}
	return stored, nil
}

// ReprocessAll re-enqueues every invoice, optionally scoped to a category,
// regardless of status or whether its file still exists. A missing file fails
// the next attempt with "file not found"; the invoice is never removed.
func (p *Pipeline) ReprocessAll(category string) (int64, error) {
	if category != "" && category != models.CategoryRevenue && category != models.CategoryPayable {
		return 0, &errs.ValidationError{Field: "category", Reason: "must be revenue or payable"}
	}
	count, err := p.invoices.MarkAllPending(category)
	if err != nil {
		return 0, err
	}
	p.logs.Append(nil, "", models.ProcessReprocess, models.LogOK,
		fmt.Sprintf("re-enqueued %d documents", count))
	p.Wake()
	return count, nil
}

// Reprocess re-enqueues exactly one invoice. An in-flight attempt for the
// same invoice is not cancelled; its finishing write loses to the pending
// reset and the next pass picks the invoice up again.
func (p *Pipeline) Reprocess(id uuid.UUID) error {
	inv, err := p.invoices.GetByID(id)
	if err != nil {
		return err
	}
	if err := p.invoices.MarkPending(id); err != nil {
		return err
	}
	p.logs.Append(&inv.ID, inv.FileHash, models.ProcessReprocess, models.LogOK, "re-enqueued")
	p.Wake()
	return nil
}

func derefFloat(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
