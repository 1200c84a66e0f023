package resolve

import (
	"testing"

	"invoice-ingestion-backend/internal/models"

	"github.com/google/uuid"
)

func strptr(s string) *string { return &s }

func baseInvoice() models.Invoice {
	return models.Invoice{
		ID:               uuid.New(),
		Category:         models.CategoryRevenue,
		IngestionStatus:  models.StatusDone,
		InvoiceNumber:    strptr("INV-1"),
		InvoiceDate:      strptr("2024-01-15"),
		CounterpartyName: strptr("Acme GmbH"),
		TotalAmount:      "1200.00",
		Currency:         "EUR",
		Status:           models.PaymentOpen,
		ConfidenceScore:  0.93,
	}
}

func TestOverrideWinsAndClearReverts(t *testing.T) {
	inv := baseInvoice()
	overrides := []models.InvoiceOverride{
		{InvoiceID: inv.ID, FieldName: "total_amount", OverrideValue: "1500.00"},
	}

	resolved := inv
	Invoice(&resolved, overrides)
	if resolved.TotalAmount != "1500.00" {
		t.Fatalf("expected override to win, got %s", resolved.TotalAmount)
	}

	// Clearing the override reverts to the stored extracted value: the
	// resolver recomputes from scratch, never from a cached merge.
	reverted := inv
	Invoice(&reverted, nil)
	if reverted.TotalAmount != "1200.00" {
		t.Fatalf("expected revert to extracted value, got %s", reverted.TotalAmount)
	}
}

func TestOverridesAreFreeText(t *testing.T) {
	inv := baseInvoice()
	overrides := []models.InvoiceOverride{
		{InvoiceID: inv.ID, FieldName: "invoice_date", OverrideValue: "sometime next week"},
		{InvoiceID: inv.ID, FieldName: "status", OverrideValue: "paid"},
	}

	resolved := inv
	Invoice(&resolved, overrides)
	if resolved.InvoiceDate == nil || *resolved.InvoiceDate != "sometime next week" {
		t.Fatalf("expected free-text override, got %v", resolved.InvoiceDate)
	}
	if resolved.Status != "paid" {
		t.Fatalf("expected status override, got %s", resolved.Status)
	}
}

func TestUnknownFieldIsIgnored(t *testing.T) {
	inv := baseInvoice()
	resolved := inv
	Invoice(&resolved, []models.InvoiceOverride{
		{InvoiceID: inv.ID, FieldName: "file_hash", OverrideValue: "nope"},
	})
	if resolved.FileHash != inv.FileHash {
		t.Fatal("non-business fields must not be overridable")
	}
}

func TestSummaryCarriesResolvedValues(t *testing.T) {
	inv := baseInvoice()
	summary := Summary(inv, []models.InvoiceOverride{
		{InvoiceID: inv.ID, FieldName: "counterparty_name", OverrideValue: "Umbrella Corp"},
	})
	if summary.CounterpartyName == nil || *summary.CounterpartyName != "Umbrella Corp" {
		t.Fatalf("expected resolved counterparty, got %v", summary.CounterpartyName)
	}
	if summary.TotalAmount != "1200.00" {
		t.Fatalf("expected extracted total, got %s", summary.TotalAmount)
	}
	if summary.ConfidenceScore != 0.93 {
		t.Fatalf("expected confidence carried over, got %f", summary.ConfidenceScore)
	}
}
