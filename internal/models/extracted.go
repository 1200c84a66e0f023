package models

// ExtractedInvoiceData is the structured payload the extraction provider
// returns for one document. Pointer fields are nullable in the provider's
// schema.
type ExtractedInvoiceData struct {
	InvoiceNumber    *string  `json:"invoice_number"`
	InvoiceDate      *string  `json:"invoice_date"`
	DueDate          *string  `json:"due_date"`
	CounterpartyName *string  `json:"counterparty_name"`
	TotalAmount      *float64 `json:"total_amount"`
	Currency         *string  `json:"currency"`
	TaxAmount        *float64 `json:"tax_amount"`
	NetAmount        *float64 `json:"net_amount"`
	ExtractionNotes  string   `json:"extraction_notes"`
	ConfidenceScore  *float64 `json:"confidence_score"`
}
