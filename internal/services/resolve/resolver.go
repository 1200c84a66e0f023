package resolve

import "invoice-ingestion-backend/internal/models"

// The resolver merges stored extracted values with manual overrides: for each
// business field, an override wins; otherwise the invoice's own column is
// used. It is recomputed on every read and never caches a merged value, so
// clearing an override is a true revert. Override values are free text and
// are not validated against the field's semantic type.

// Invoice applies overrides to a full invoice in place.
func Invoice(inv *models.Invoice, overrides []models.InvoiceOverride) {
	for _, ov := range overrides {
		value := ov.OverrideValue
		switch ov.FieldName {
		case "invoice_number":
			inv.InvoiceNumber = &value
		case "invoice_date":
			inv.InvoiceDate = &value
		case "due_date":
			inv.DueDate = &value
		case "counterparty_name":
			inv.CounterpartyName = &value
		case "total_amount":
			inv.TotalAmount = value
		case "currency":
			inv.Currency = value
		case "tax_amount":
			inv.TaxAmount = &value
		case "net_amount":
			inv.NetAmount = &value
		case "status":
			inv.Status = value
		case "paid_at":
			inv.PaidAt = &value
		}
	}
}

// Summary builds the resolved list-view projection of an invoice.
func Summary(inv models.Invoice, overrides []models.InvoiceOverride) models.InvoiceSummary {
	resolved := inv
	Invoice(&resolved, overrides)
	return models.InvoiceSummary{
		ID:               resolved.ID,
		InvoiceDate:      resolved.InvoiceDate,
		CounterpartyName: resolved.CounterpartyName,
		TotalAmount:      resolved.TotalAmount,
		Status:           resolved.Status,
		IngestionStatus:  resolved.IngestionStatus,
		ConfidenceScore:  resolved.ConfidenceScore,
		FilePath:         resolved.FilePath,
	}
}
