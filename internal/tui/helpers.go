package tui

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// formatHours formats decimal hours as "Xh Ym"
func formatHours(hours decimal.Decimal) string {
	minutes := hours.Mul(decimal.NewFromInt(60)).Round(0).IntPart()
	h, m := minutes/60, minutes%60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

// formatClock formats a duration as HH:MM:SS
func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// formatMoney formats money as "X,XXX.XX CUR" with comma separators
func formatMoney(amount decimal.Decimal, currency string) string {
	negative := amount.IsNegative()
	s := amount.Abs().StringFixed(2)

	// Split at decimal point
	dotPos := len(s) - 3
	intPart := s[:dotPos]
	decPart := s[dotPos:]

	// Add commas to integer part
	result := make([]byte, 0, len(intPart)+len(intPart)/3)
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c))
	}

	prefix := ""
	if negative {
		prefix = "-"
	}
	out := prefix + string(result) + decPart
	if currency != "" {
		out += " " + currency
	}
	return out
}

// truncateStr truncates a string to the specified length with ellipsis
func truncateStr(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
