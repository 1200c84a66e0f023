package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"invoice-ingestion-backend/internal/errs"
	"invoice-ingestion-backend/internal/models"
	"invoice-ingestion-backend/internal/repository"
	"invoice-ingestion-backend/internal/services/scanner"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type stubOCR struct {
	text string
	err  error
}

func (s *stubOCR) ExtractText(ctx context.Context, path, language string) (string, error) {
	return s.text, s.err
}

type stubExtractor struct {
	data models.ExtractedInvoiceData
	raw  string
	err  error
}

func (s *stubExtractor) Extract(ctx context.Context, apiKey, text string) (models.ExtractedInvoiceData, json.RawMessage, error) {
	if s.err != nil {
		return models.ExtractedInvoiceData{}, nil, s.err
	}
	return s.data, json.RawMessage(s.raw), nil
}

func (s *stubExtractor) TestKey(ctx context.Context, apiKey string) (bool, error) {
	return true, nil
}

type fixture struct {
	db       *gorm.DB
	invoices *repository.InvoiceRepository
	logs     *repository.ProcessingLogRepository
	hub      *Hub
	pipeline *Pipeline
}

func strptr(s string) *string { return &s }

func floatptr(f float64) *float64 { return &f }

func newFixture(t *testing.T, textExtractor *stubOCR, fieldExtractor *stubExtractor) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.sqlite")), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.AutoMigrate(&models.Invoice{}, &models.InvoiceOverride{}, &models.Setting{}, &models.ProcessingLog{}); err != nil {
		t.Fatal(err)
	}

	invoices := repository.NewInvoiceRepository(db)
	settings := repository.NewSettingRepository(db)
	logs := repository.NewProcessingLogRepository(db)
	hub := NewHub()
	sc := scanner.New(invoices, logs)

	return &fixture{
		db:       db,
		invoices: invoices,
		logs:     logs,
		hub:      hub,
		pipeline: New(invoices, settings, logs, sc, textExtractor, fieldExtractor, hub, Config{Workers: 2}),
	}
}

func (f *fixture) pendingInvoice(t *testing.T, path string) *models.Invoice {
	t.Helper()
	inv := &models.Invoice{
		ID:              uuid.New(),
		Category:        models.CategoryRevenue,
		FilePath:        &path,
		FileHash:        "h1",
		IngestionStatus: models.StatusPending,
		ExtractedJSON:   datatypes.JSON([]byte("{}")),
		TotalAmount:     "0.00",
		Currency:        models.DefaultCurrency,
		Status:          models.PaymentOpen,
	}
	if err := f.invoices.Create(inv); err != nil {
		t.Fatal(err)
	}
	return inv
}

func testSettings() models.Settings {
	return models.Settings{OpenAIAPIKey: strptr("sk-plain"), OCRLanguage: "deu"}
}

func tempInvoiceFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "invoice_2024_01.pdf")
	if err := os.WriteFile(path, []byte("pdf-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunPending_SuccessfulExtraction(t *testing.T) {
	f := newFixture(t,
		&stubOCR{text: "Rechnung Nr. 2024-001"},
		&stubExtractor{
			data: models.ExtractedInvoiceData{
				InvoiceNumber:    strptr("2024-001"),
				InvoiceDate:      strptr("15.01.2024"),
				CounterpartyName: strptr("Acme GmbH"),
				TotalAmount:      floatptr(1200),
				Currency:         strptr("EUR"),
				ConfidenceScore:  floatptr(0.93),
			},
			raw: `{"invoice_number":"2024-001"}`,
		},
	)
	inv := f.pendingInvoice(t, tempInvoiceFile(t))

	events, cancel := f.hub.Subscribe()
	defer cancel()

	ran := f.pipeline.RunPending(context.Background(), testSettings())
	if ran != 1 {
		t.Fatalf("expected one attempt, got %d", ran)
	}

	got, err := f.invoices.GetByID(inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.IngestionStatus != models.StatusDone {
		t.Fatalf("expected done, got %s", got.IngestionStatus)
	}
	if got.TotalAmount != "1200.00" {
		t.Fatalf("expected formatted total, got %s", got.TotalAmount)
	}
	if got.InvoiceDate == nil || *got.InvoiceDate != "2024-01-15" {
		t.Fatalf("expected normalized date, got %v", got.InvoiceDate)
	}
	if got.ConfidenceScore != 0.93 {
		t.Fatalf("expected confidence stored, got %f", got.ConfidenceScore)
	}
	if got.OCRText == nil || !strings.Contains(*got.OCRText, "Rechnung") {
		t.Fatal("expected raw OCR text stored")
	}

	select {
	case ev := <-events:
		if ev.Type != EventInvoiceUpdated || ev.InvoiceID != inv.ID.String() {
			t.Fatalf("unexpected event: %+v", ev)
		}
	default:
		t.Fatal("expected invoice-updated event")
	}
}

func TestRunPending_ProviderFailureKeepsLastGoodData(t *testing.T) {
	f := newFixture(t,
		&stubOCR{text: "some text"},
		&stubExtractor{err: &errs.ExtractionError{Stage: "extract", Err: errors.New("quota exceeded")}},
	)
	inv := f.pendingInvoice(t, tempInvoiceFile(t))

	// Pretend an earlier cycle succeeded.
	inv.ExtractedJSON = datatypes.JSON([]byte(`{"total_amount":42}`))
	inv.TotalAmount = "42.00"
	inv.ConfidenceScore = 0.8
	if err := f.invoices.Save(inv); err != nil {
		t.Fatal(err)
	}

	events, cancel := f.hub.Subscribe()
	defer cancel()

	f.pipeline.RunPending(context.Background(), testSettings())

	got, err := f.invoices.GetByID(inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.IngestionStatus != models.StatusError {
		t.Fatalf("expected error status, got %s", got.IngestionStatus)
	}
	if got.TotalAmount != "42.00" || got.ConfidenceScore != 0.8 {
		t.Fatal("failure must not overwrite last good extraction")
	}
	if string(got.ExtractedJSON) != `{"total_amount":42}` {
		t.Fatal("failure must not overwrite extracted payload")
	}

	logs, err := f.logs.ListByInvoice(inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, entry := range logs {
		if entry.ProcessType == models.ProcessExtract && entry.Status == models.LogError {
			found = true
			if !strings.Contains(entry.Message, "quota") {
				t.Fatalf("expected cause in log message, got %q", entry.Message)
			}
		}
	}
	if !found {
		t.Fatal("expected an extract error log entry")
	}

	select {
	case ev := <-events:
		if ev.Type != EventProcessingError {
			t.Fatalf("expected processing-error event, got %+v", ev)
		}
	default:
		t.Fatal("expected processing-error event")
	}
}

func TestRunPending_MissingTotalAmountIsError(t *testing.T) {
	f := newFixture(t,
		&stubOCR{text: "some text"},
		&stubExtractor{
			data: models.ExtractedInvoiceData{CounterpartyName: strptr("Acme")},
			raw:  `{"counterparty_name":"Acme"}`,
		},
	)
	inv := f.pendingInvoice(t, tempInvoiceFile(t))

	f.pipeline.RunPending(context.Background(), testSettings())

	got, err := f.invoices.GetByID(inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	// An incomplete payload must never present itself as finished.
	if got.IngestionStatus != models.StatusError {
		t.Fatalf("expected error status, got %s", got.IngestionStatus)
	}
}

func TestRunPending_DeletedFileFailsWithFileNotFound(t *testing.T) {
	f := newFixture(t, &stubOCR{text: "x"}, &stubExtractor{raw: "{}"})
	path := tempInvoiceFile(t)
	inv := f.pendingInvoice(t, path)
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	f.pipeline.RunPending(context.Background(), testSettings())

	got, err := f.invoices.GetByID(inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.IngestionStatus != models.StatusError {
		t.Fatalf("expected error status, got %s", got.IngestionStatus)
	}

	logs, err := f.logs.ListByInvoice(inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, entry := range logs {
		if strings.Contains(entry.Message, "file not found") {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a file-not-found log entry")
	}
}

func TestRunPending_MissingCredentialIsError(t *testing.T) {
	f := newFixture(t, &stubOCR{text: "x"}, &stubExtractor{raw: "{}"})
	inv := f.pendingInvoice(t, tempInvoiceFile(t))

	f.pipeline.RunPending(context.Background(), models.Settings{OCRLanguage: "deu"})

	got, err := f.invoices.GetByID(inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.IngestionStatus != models.StatusError {
		t.Fatalf("expected error status, got %s", got.IngestionStatus)
	}
}

func TestReprocess_UnknownIDIsNotFound(t *testing.T) {
	f := newFixture(t, &stubOCR{}, &stubExtractor{})
	if err := f.pipeline.Reprocess(uuid.New()); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReprocessAll_ReenqueuesEveryStatus(t *testing.T) {
	f := newFixture(t, &stubOCR{}, &stubExtractor{})

	done := f.pendingInvoice(t, filepath.Join(t.TempDir(), "done.pdf"))
	done.IngestionStatus = models.StatusDone
	if err := f.invoices.Save(done); err != nil {
		t.Fatal(err)
	}
	failed := f.pendingInvoice(t, filepath.Join(t.TempDir(), "failed.pdf"))
	failed.IngestionStatus = models.StatusError
	if err := f.invoices.Save(failed); err != nil {
		t.Fatal(err)
	}

	count, err := f.pipeline.ReprocessAll("")
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("expected 2 re-enqueued, got %d", count)
	}

	for _, id := range []uuid.UUID{done.ID, failed.ID} {
		got, err := f.invoices.GetByID(id)
		if err != nil {
			t.Fatal(err)
		}
		if got.IngestionStatus != models.StatusPending {
			t.Fatalf("expected pending, got %s", got.IngestionStatus)
		}
	}
}

func TestReprocessAll_RejectsUnknownCategory(t *testing.T) {
	f := newFixture(t, &stubOCR{}, &stubExtractor{})
	_, err := f.pipeline.ReprocessAll("expenses")
	var validationErr *errs.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
