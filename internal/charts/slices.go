// Package charts turns report and dataset rows into chart series and
// renders them as SVG.
package charts

import (
	"github.com/shopspring/decimal"

	"delhidash/internal/report"
)

// Palette is the pie slice color cycle.
var Palette = []string{"#0088FE", "#00C49F", "#FFBB28", "#FF8042", "#8884D8"}

// expenseOffset shifts expense slices so they do not start on the same
// colors as earnings.
const expenseOffset = 2

// Slice is one pie segment and its breakdown table row.
type Slice struct {
	ID         string
	Name       string
	Value      decimal.Decimal
	Percentage string
	Color      string
}

// EarningsSlices maps earnings lines to slices of the earnings total.
func EarningsSlices(r *report.Report) []Slice {
	if r == nil {
		return nil
	}
	out := make([]Slice, len(r.Earnings))
	for i, e := range r.Earnings {
		out[i] = Slice{
			ID:         e.ID,
			Name:       e.Platform,
			Value:      e.Amount,
			Percentage: Percentage(e.Amount, r.TotalEarnings),
			Color:      Palette[i%len(Palette)],
		}
	}
	return out
}

// ExpenseSlices maps expense lines to slices of the expenses total.
func ExpenseSlices(r *report.Report) []Slice {
	if r == nil {
		return nil
	}
	out := make([]Slice, len(r.Expenses))
	for i, e := range r.Expenses {
		out[i] = Slice{
			ID:         e.ID,
			Name:       e.Type,
			Value:      e.Amount,
			Percentage: Percentage(e.Amount, r.TotalExpenses),
			Color:      Palette[(i+expenseOffset)%len(Palette)],
		}
	}
	return out
}

// Plottable reports whether slices have a positive sum to draw.
func Plottable(slices []Slice) bool {
	sum := decimal.Zero
	for _, s := range slices {
		if s.Value.IsNegative() {
			continue
		}
		sum = sum.Add(s.Value)
	}
	return sum.IsPositive()
}
