package repository

import (
	"testing"

	"invoice-ingestion-backend/internal/models"
)

func TestOverrideRepository_SetReplaces(t *testing.T) {
	db := testDB(t)
	invoices := NewInvoiceRepository(db)
	repo := NewOverrideRepository(db)

	inv := newInvoice("/data/a.pdf")
	if err := invoices.Create(inv); err != nil {
		t.Fatal(err)
	}

	if err := repo.Set(inv.ID, "total_amount", "1200.00"); err != nil {
		t.Fatal(err)
	}
	if err := repo.Set(inv.ID, "total_amount", "1500.00"); err != nil {
		t.Fatal(err)
	}

	overrides, err := repo.ListByInvoice(inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(overrides) != 1 {
		t.Fatalf("expected one override per (invoice, field), got %d", len(overrides))
	}
	if overrides[0].OverrideValue != "1500.00" {
		t.Fatalf("expected later override to win, got %s", overrides[0].OverrideValue)
	}
}

func TestOverrideRepository_ClearIsNoOpWhenAbsent(t *testing.T) {
	db := testDB(t)
	invoices := NewInvoiceRepository(db)
	repo := NewOverrideRepository(db)

	inv := newInvoice("/data/a.pdf")
	if err := invoices.Create(inv); err != nil {
		t.Fatal(err)
	}

	removed, err := repo.Clear(inv.ID, "total_amount")
	if err != nil {
		t.Fatal(err)
	}
	if removed != 0 {
		t.Fatalf("expected no-op, removed %d", removed)
	}

	if err := repo.Set(inv.ID, "total_amount", "10.00"); err != nil {
		t.Fatal(err)
	}
	removed, err = repo.Clear(inv.ID, "total_amount")
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Fatalf("expected one removed, got %d", removed)
	}

	// Clearing the override must not touch the invoice.
	if _, err := invoices.GetByID(inv.ID); err != nil {
		t.Fatalf("invoice should survive override deletion: %v", err)
	}
}

func TestOverrideRepository_ListAllGroupsByInvoice(t *testing.T) {
	db := testDB(t)
	invoices := NewInvoiceRepository(db)
	repo := NewOverrideRepository(db)

	a := newInvoice("/data/a.pdf")
	b := newInvoice("/data/b.pdf")
	for _, inv := range []*models.Invoice{a, b} {
		if err := invoices.Create(inv); err != nil {
			t.Fatal(err)
		}
	}
	if err := repo.Set(a.ID, "status", "paid"); err != nil {
		t.Fatal(err)
	}
	if err := repo.Set(a.ID, "currency", "USD"); err != nil {
		t.Fatal(err)
	}
	if err := repo.Set(b.ID, "status", "open"); err != nil {
		t.Fatal(err)
	}

	grouped, err := repo.ListAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(grouped[a.ID]) != 2 || len(grouped[b.ID]) != 1 {
		t.Fatalf("unexpected grouping: %d/%d", len(grouped[a.ID]), len(grouped[b.ID]))
	}
}
