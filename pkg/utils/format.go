// Package utils provides shared formatting helpers for decimal amounts.
package utils

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"optionstrat/internal/positive"
)

// InfinitySymbol stands in for unbounded profit or loss.
const InfinitySymbol = "∞"

// FormatMoney formats amount with places decimals and thousands separators.
func FormatMoney(amount decimal.Decimal, places int32) string {
	negative := amount.IsNegative()
	str := amount.Abs().StringFixed(places)

	intPart, decPart, hasDec := strings.Cut(str, ".")
	result := groupThousands(intPart)
	if hasDec {
		result += "." + decPart
	}
	if negative && strings.Trim(result, "0.,") != "" {
		result = "-" + result
	}
	return result
}

// groupThousands inserts a comma every three digits from the right.
func groupThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	var sb strings.Builder
	head := n % 3
	if head > 0 {
		sb.WriteString(s[:head])
	}
	for i := head; i < n; i += 3 {
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(s[i : i+3])
	}
	return sb.String()
}

// FormatPositive formats p like FormatMoney, or as ∞ for the Infinity
// sentinel.
func FormatPositive(p positive.Positive, places int32) string {
	if p.IsInfinite() {
		return InfinitySymbol
	}
	return FormatMoney(p.Decimal(), places)
}

// FormatPnL formats P&L with an explicit sign.
func FormatPnL(pnl decimal.Decimal, places int32) string {
	formatted := FormatMoney(pnl, places)
	if pnl.Round(places).IsPositive() {
		return "+" + formatted
	}
	return formatted
}

// FormatProbability formats a probability in [0, 1] as a percentage.
func FormatProbability(p positive.Positive) string {
	return fmt.Sprintf("%.2f%%", p.Float64()*100)
}

// FormatRatio formats a profit ratio, already in percent.
func FormatRatio(r positive.Positive) string {
	if r.IsInfinite() {
		return InfinitySymbol
	}
	return fmt.Sprintf("%.2f%%", r.Float64())
}

// FormatGreek formats a sensitivity with four decimals.
func FormatGreek(g decimal.Decimal) string {
	return g.StringFixed(4)
}

// FormatPrices joins prices, e.g. break-even points.
func FormatPrices(prices []positive.Positive, places int32) string {
	if len(prices) == 0 {
		return "none"
	}
	parts := make([]string, len(prices))
	for i, p := range prices {
		parts[i] = FormatPositive(p, places)
	}
	return strings.Join(parts, ", ")
}
