package charts

import (
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// NoPercentage is shown when a share cannot be computed.
const NoPercentage = "—"

var hundred = decimal.NewFromInt(100)

// Percentage renders amount/total*100 with one decimal, e.g. "62.5%".
// A zero total yields NoPercentage.
func Percentage(amount, total decimal.Decimal) string {
	if total.IsZero() {
		return NoPercentage
	}
	return amount.Div(total).Mul(hundred).StringFixed(1) + "%"
}

// FormatRupees renders an amount with the rupee sign and thousands
// grouping, e.g. "₹1,000" or "₹1,234.5".
func FormatRupees(amount decimal.Decimal) string {
	f, _ := amount.Round(2).Float64()
	return "₹" + humanize.CommafWithDigits(f, 2)
}
