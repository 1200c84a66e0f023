package pipeline

import (
	"strconv"
	"strings"
	"time"
)

// Date layouts accepted from the extraction provider, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"02/01/2006",
	"2006/01/02",
	"2006.01.02",
}

// normalizeDate converts a provider date to YYYY-MM-DD. An unparseable value
// is passed through as-is; an empty one becomes nil.
func normalizeDate(value *string) *string {
	if value == nil {
		return nil
	}
	raw := strings.TrimSpace(*value)
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			normalized := t.Format("2006-01-02")
			return &normalized
		}
	}
	return &raw
}

// formatAmount renders a monetary value as a two-decimal string.
func formatAmount(value float64) string {
	return strconv.FormatFloat(value, 'f', 2, 64)
}

func formatAmountPtr(value *float64) *string {
	if value == nil {
		return nil
	}
	s := formatAmount(*value)
	return &s
}

func clampConfidence(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
