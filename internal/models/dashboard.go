package models

// DashboardStats is the KPI bundle for one target month: month/year sums per
// category, profit, the open-payables total, recent activity per category and
// a twelve-month chart series ending at the target month. All sums are over
// resolved (override-aware) total amounts.
type DashboardStats struct {
	RevenueMonth  float64          `json:"revenue_month"`
	RevenueYear   float64          `json:"revenue_year"`
	PayableMonth  float64          `json:"payable_month"`
	PayableYear   float64          `json:"payable_year"`
	ProfitMonth   float64          `json:"profit_month"`
	ProfitYear    float64          `json:"profit_year"`
	OpenPayables  float64          `json:"open_payables"`
	RecentRevenue []InvoiceSummary `json:"recent_revenue"`
	RecentPayable []InvoiceSummary `json:"recent_payables"`
	ChartMonths   []string         `json:"chart_months"`
	ChartRevenue  []float64        `json:"chart_revenue"`
	ChartPayables []float64        `json:"chart_payables"`
	ChartProfit   []float64        `json:"chart_profit"`
}
