package strategies

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"

	"optionstrat/internal/models"
	"optionstrat/internal/positive"
)

// Summary renders the legs and the headline figures of s as text tables.
func Summary(s Strategy) string {
	var sb strings.Builder
	sb.WriteString(title(s))
	sb.WriteString("\n")

	legs := tablewriter.NewWriter(&sb)
	legs.SetHeader([]string{"Leg", "Side", "Style", "Strike", "Qty", "Premium", "Expiry"})
	legs.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, l := range s.Legs() {
		row := []string{string(l.Kind()), string(l.Direction()), "", "", l.Size().String(), "", ""}
		if p, ok := l.(*models.Position); ok {
			row[2] = string(p.Option.Style)
			row[3] = p.Option.StrikePrice.String()
			row[5] = p.Premium.String()
			row[6] = p.Option.Expiration.String()
		}
		legs.Append(row)
	}
	legs.Render()

	stats := tablewriter.NewWriter(&sb)
	stats.SetColumnSeparator("")
	stats.SetBorder(false)
	stats.SetAlignment(tablewriter.ALIGN_LEFT)
	stats.Append([]string{"Underlying", s.UnderlyingPrice().String()})
	stats.Append([]string{"Break-even", joinPrices(s.BreakEvenPoints())})
	stats.Append([]string{"Max profit", orError(s.MaxProfit())})
	stats.Append([]string{"Max loss", orError(s.MaxLoss())})
	stats.Append([]string{"Net cost", NetCost(s).StringFixed(2)})
	stats.Append([]string{"Fees", Fees(s).Round(2).String()})
	stats.Append([]string{"Profit ratio", orError(ProfitRatio(s))})
	stats.Render()
	return sb.String()
}

// PnLTable renders the expiration P&L of s at each price.
func PnLTable(s Strategy, prices []positive.Positive) string {
	var sb strings.Builder
	t := tablewriter.NewWriter(&sb)
	t.SetHeader([]string{"Price", "P&L"})
	t.SetAlignment(tablewriter.ALIGN_RIGHT)
	for i, v := range PnLCurve(s, prices) {
		t.Append([]string{prices[i].Round(2).String(), v.StringFixed(2)})
	}
	t.Render()
	return sb.String()
}

func title(s Strategy) string {
	if t, ok := s.(interface{ Title() string }); ok {
		return t.Title()
	}
	return fmt.Sprintf("%s Strategy: %s", s.Kind(), s.Symbol())
}

func joinPrices(ps []positive.Positive) string {
	if len(ps) == 0 {
		return "-"
	}
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.Round(2).String()
	}
	return strings.Join(parts, ", ")
}

func orError(p positive.Positive, err error) string {
	if err != nil {
		return "n/a"
	}
	if p.IsInfinite() {
		return p.String()
	}
	return p.Round(2).String()
}
