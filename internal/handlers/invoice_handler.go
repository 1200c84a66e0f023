package handler

import (
	"errors"
	"io"
	"net/http"
	"os"
	"os/exec"
	"runtime"

	"invoice-ingestion-backend/internal/errs"
	"invoice-ingestion-backend/internal/models"
	"invoice-ingestion-backend/internal/repository"
	"invoice-ingestion-backend/internal/services/dashboard"
	"invoice-ingestion-backend/internal/services/extraction"
	"invoice-ingestion-backend/internal/services/pipeline"
	"invoice-ingestion-backend/internal/services/resolve"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	invoices  *repository.InvoiceRepository
	overrides *repository.OverrideRepository
	settings  *repository.SettingRepository
	logs      *repository.ProcessingLogRepository
	pipeline  *pipeline.Pipeline
	dashboard *dashboard.Service
	extractor extraction.FieldExtractor
	hub       *pipeline.Hub
}

func New(
	invoices *repository.InvoiceRepository,
	overrides *repository.OverrideRepository,
	settings *repository.SettingRepository,
	logs *repository.ProcessingLogRepository,
	pl *pipeline.Pipeline,
	dash *dashboard.Service,
	extractor extraction.FieldExtractor,
	hub *pipeline.Hub,
) *Handler {
	return &Handler{
		invoices:  invoices,
		overrides: overrides,
		settings:  settings,
		logs:      logs,
		pipeline:  pl,
		dashboard: dash,
		extractor: extractor,
		hub:       hub,
	}
}

func respondError(c *gin.Context, err error) {
	var (
		validationErr *errs.ValidationError
		credentialErr *errs.CredentialError
	)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
	case errors.As(err, &credentialErr):
		c.JSON(http.StatusUnauthorized, gin.H{"error": errs.Sanitize(credentialErr.Error())})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": errs.Sanitize(err.Error())})
	}
}

func parseInvoiceID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice ID"})
		return uuid.Nil, false
	}
	return id, true
}

// GetDashboard returns the KPI bundle for ?month=YYYY-MM (default: current
// month).
func (h *Handler) GetDashboard(c *gin.Context) {
	stats, err := h.dashboard.Stats(c.Query("month"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListInvoices returns resolved summaries for one category.
func (h *Handler) ListInvoices(c *gin.Context) {
	category := c.Query("category")
	if category != models.CategoryRevenue && category != models.CategoryPayable {
		c.JSON(http.StatusBadRequest, gin.H{"error": "category must be revenue or payable"})
		return
	}

	invoices, err := h.invoices.ListByCategory(category)
	if err != nil {
		respondError(c, err)
		return
	}
	overrides, err := h.overrides.ListAll()
	if err != nil {
		respondError(c, err)
		return
	}

	summaries := make([]models.InvoiceSummary, 0, len(invoices))
	for _, inv := range invoices {
		summaries = append(summaries, resolve.Summary(inv, overrides[inv.ID]))
	}
	c.JSON(http.StatusOK, gin.H{"items": summaries})
}

// GetInvoiceDetail returns the resolved invoice with raw OCR text, the raw
// extracted payload, its overrides and its processing history.
func (h *Handler) GetInvoiceDetail(c *gin.Context) {
	id, ok := parseInvoiceID(c)
	if !ok {
		return
	}

	inv, err := h.invoices.GetByID(id)
	if err != nil {
		respondError(c, err)
		return
	}
	overrides, err := h.overrides.ListByInvoice(id)
	if err != nil {
		respondError(c, err)
		return
	}
	logs, err := h.logs.ListByInvoice(id)
	if err != nil {
		respondError(c, err)
		return
	}

	resolved := *inv
	resolve.Invoice(&resolved, overrides)
	c.JSON(http.StatusOK, models.InvoiceDetail{Invoice: resolved, Overrides: overrides, Logs: logs})
}

// UpdateField creates or replaces the override for one field. No
// re-extraction is triggered.
func (h *Handler) UpdateField(c *gin.Context) {
	id, ok := parseInvoiceID(c)
	if !ok {
		return
	}
	field := c.Param("field")
	if !models.OverridableFields[field] {
		respondError(c, &errs.ValidationError{Field: "field", Reason: "unknown field name"})
		return
	}

	var payload struct {
		Value string `json:"value"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if _, err := h.invoices.GetByID(id); err != nil {
		respondError(c, err)
		return
	}
	if err := h.overrides.Set(id, field, payload.Value); err != nil {
		respondError(c, err)
		return
	}

	h.hub.Publish(pipeline.Event{Type: pipeline.EventInvoiceUpdated, InvoiceID: id.String()})
	c.JSON(http.StatusOK, gin.H{"message": "override saved"})
}

// ClearOverride deletes one override; deleting a missing override is a
// no-op. The resolved value reverts to the stored extracted value.
func (h *Handler) ClearOverride(c *gin.Context) {
	id, ok := parseInvoiceID(c)
	if !ok {
		return
	}

	removed, err := h.overrides.Clear(id, c.Param("field"))
	if err != nil {
		respondError(c, err)
		return
	}
	if removed > 0 {
		h.hub.Publish(pipeline.Event{Type: pipeline.EventInvoiceUpdated, InvoiceID: id.String()})
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed > 0})
}

// ClearOverrides deletes every override of one invoice.
func (h *Handler) ClearOverrides(c *gin.Context) {
	id, ok := parseInvoiceID(c)
	if !ok {
		return
	}
	if err := h.overrides.ClearAll(id); err != nil {
		respondError(c, err)
		return
	}
	h.hub.Publish(pipeline.Event{Type: pipeline.EventInvoiceUpdated, InvoiceID: id.String()})
	c.JSON(http.StatusOK, gin.H{"message": "overrides cleared"})
}

// ReprocessInvoice re-enqueues one invoice.
func (h *Handler) ReprocessInvoice(c *gin.Context) {
	id, ok := parseInvoiceID(c)
	if !ok {
		return
	}
	if err := h.pipeline.Reprocess(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "reprocess scheduled"})
}

// ReprocessAll re-enqueues every invoice, optionally scoped by ?category=.
func (h *Handler) ReprocessAll(c *gin.Context) {
	count, err := h.pipeline.ReprocessAll(c.Query("category"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "reprocess scheduled", "documents": count})
}

// TriggerScan runs one scan cycle now and schedules extraction of anything
// it enqueued.
func (h *Handler) TriggerScan(c *gin.Context) {
	result, err := h.pipeline.ScanNow()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// OpenFile delegates opening the invoice file to the host environment.
func (h *Handler) OpenFile(c *gin.Context) {
	id, ok := parseInvoiceID(c)
	if !ok {
		return
	}
	inv, err := h.invoices.GetByID(id)
	if err != nil {
		respondError(c, err)
		return
	}
	if inv.FilePath == nil {
		respondError(c, errs.ErrNotFound)
		return
	}
	if _, err := os.Stat(*inv.FilePath); err != nil {
		respondError(c, errs.ErrNotFound)
		return
	}
	if err := openPath(*inv.FilePath); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "opened"})
}

func openPath(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	return cmd.Start()
}

// Events streams pipeline notifications (invoice-updated, processing-error)
// as server-sent events.
func (h *Handler) Events(c *gin.Context) {
	ch, cancel := h.hub.Subscribe()
	defer cancel()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, open := <-ch:
			if !open {
				return false
			}
			c.SSEvent(ev.Type, ev)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
