package dashboard

import (
	"sort"
	"strings"
	"time"

	"invoice-ingestion-backend/internal/errs"
	"invoice-ingestion-backend/internal/models"
	"invoice-ingestion-backend/internal/repository"
	"invoice-ingestion-backend/internal/services/resolve"

	"github.com/shopspring/decimal"
)

const (
	chartWindow = 12
	recentLimit = 5
)

// Service computes the dashboard KPI bundle. All sums run over resolved
// (override-aware) total amounts; a document with a missing or non-numeric
// resolved total contributes zero. Results are independent of iteration
// order.
type Service struct {
	invoices  *repository.InvoiceRepository
	overrides *repository.OverrideRepository
}

func New(invoices *repository.InvoiceRepository, overrides *repository.OverrideRepository) *Service {
	return &Service{invoices: invoices, overrides: overrides}
}

// resolvedDoc is one invoice reduced to its aggregation-relevant resolved
// values.
type resolvedDoc struct {
	category  string
	yearMonth string // empty when no resolved invoice date
	amount    decimal.Decimal
	status    string
	summary   models.InvoiceSummary
}

// Stats builds the KPI bundle for the given target month ("YYYY-MM"; empty
// means the current month).
func (s *Service) Stats(yearMonth string) (models.DashboardStats, error) {
	var stats models.DashboardStats

	if yearMonth == "" {
		yearMonth = time.Now().Format("2006-01")
	}
	base, err := time.Parse("2006-01", yearMonth)
	if err != nil {
		return stats, &errs.ValidationError{Field: "month", Reason: "expected YYYY-MM"}
	}
	year := yearMonth[:4]

	invoices, err := s.invoices.ListAll()
	if err != nil {
		return stats, err
	}
	overrides, err := s.overrides.ListAll()
	if err != nil {
		return stats, err
	}

	docs := make([]resolvedDoc, 0, len(invoices))
	for _, inv := range invoices {
		docs = append(docs, resolveDoc(inv, overrides[inv.ID]))
	}

	monthly := map[string]map[string]decimal.Decimal{
		models.CategoryRevenue: {},
		models.CategoryPayable: {},
	}
	yearly := map[string]decimal.Decimal{}
	openPayables := decimal.Zero

	for _, doc := range docs {
		if doc.yearMonth != "" {
			byMonth := monthly[doc.category]
			byMonth[doc.yearMonth] = byMonth[doc.yearMonth].Add(doc.amount)
			if strings.HasPrefix(doc.yearMonth, year) {
				yearly[doc.category] = yearly[doc.category].Add(doc.amount)
			}
		}
		if doc.category == models.CategoryPayable && doc.status != models.PaymentPaid {
			openPayables = openPayables.Add(doc.amount)
		}
	}

	revenueMonth := monthly[models.CategoryRevenue][yearMonth]
	payableMonth := monthly[models.CategoryPayable][yearMonth]
	revenueYear := yearly[models.CategoryRevenue]
	payableYear := yearly[models.CategoryPayable]

	stats.RevenueMonth = revenueMonth.InexactFloat64()
	stats.PayableMonth = payableMonth.InexactFloat64()
	stats.RevenueYear = revenueYear.InexactFloat64()
	stats.PayableYear = payableYear.InexactFloat64()
	stats.ProfitMonth = revenueMonth.Sub(payableMonth).InexactFloat64()
	stats.ProfitYear = revenueYear.Sub(payableYear).InexactFloat64()
	stats.OpenPayables = openPayables.InexactFloat64()

	stats.ChartMonths = make([]string, 0, chartWindow)
	stats.ChartRevenue = make([]float64, 0, chartWindow)
	stats.ChartPayables = make([]float64, 0, chartWindow)
	stats.ChartProfit = make([]float64, 0, chartWindow)
	for offset := chartWindow - 1; offset >= 0; offset-- {
		ym := base.AddDate(0, -offset, 0).Format("2006-01")
		rev := monthly[models.CategoryRevenue][ym]
		pay := monthly[models.CategoryPayable][ym]
		stats.ChartMonths = append(stats.ChartMonths, ym)
		stats.ChartRevenue = append(stats.ChartRevenue, rev.InexactFloat64())
		stats.ChartPayables = append(stats.ChartPayables, pay.InexactFloat64())
		stats.ChartProfit = append(stats.ChartProfit, rev.Sub(pay).InexactFloat64())
	}

	stats.RecentRevenue = recentSummaries(docs, models.CategoryRevenue)
	stats.RecentPayable = recentSummaries(docs, models.CategoryPayable)

	return stats, nil
}

func resolveDoc(inv models.Invoice, overrides []models.InvoiceOverride) resolvedDoc {
	summary := resolve.Summary(inv, overrides)

	doc := resolvedDoc{
		category: inv.Category,
		status:   summary.Status,
		summary:  summary,
	}
	if amount, ok := parseAmount(summary.TotalAmount); ok {
		doc.amount = amount
	}
	if summary.InvoiceDate != nil && len(*summary.InvoiceDate) >= 7 {
		if _, err := time.Parse("2006-01", (*summary.InvoiceDate)[:7]); err == nil {
			doc.yearMonth = (*summary.InvoiceDate)[:7]
		}
	}
	return doc
}

// parseAmount reads a resolved amount string. Overrides are free text, so a
// comma decimal separator is accepted and anything unparseable counts as
// zero.
func parseAmount(value string) (decimal.Decimal, bool) {
	normalized := strings.ReplaceAll(strings.TrimSpace(value), ",", ".")
	if normalized == "" {
		return decimal.Zero, false
	}
	amount, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, false
	}
	return amount, true
}

// recentSummaries returns the most recently dated resolved documents of one
// category. Documents without a resolved date sort last; empty results are an
// explicit empty list.
func recentSummaries(docs []resolvedDoc, category string) []models.InvoiceSummary {
	filtered := make([]resolvedDoc, 0)
	for _, doc := range docs {
		if doc.category == category {
			filtered = append(filtered, doc)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		di, dj := filtered[i].summary.InvoiceDate, filtered[j].summary.InvoiceDate
		switch {
		case di == nil:
			return false
		case dj == nil:
			return true
		default:
			return *di > *dj
		}
	})
	if len(filtered) > recentLimit {
		filtered = filtered[:recentLimit]
	}
	out := make([]models.InvoiceSummary, 0, len(filtered))
	for _, doc := range filtered {
		out = append(out, doc.summary)
	}
	return out
}
