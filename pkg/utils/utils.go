package utils

import (
	"github.com/shopspring/decimal"
)

// FormatAmount renders a monetary value for display: rounded to one decimal
// place, with the decimal shown only when it is non-zero ("50" but "50.5").
func FormatAmount(v decimal.Decimal) string {
	rounded := v.Round(1)
	if rounded.IsInteger() {
		return rounded.Truncate(0).String()
	}
	return rounded.StringFixed(1)
}

// FormatPercentage renders amount as a share of total, in percent, using the
// same one-decimal display rule as FormatAmount. A zero total yields "0".
func FormatPercentage(amount, total decimal.Decimal) string {
	if total.IsZero() {
		return "0"
	}
	pct := amount.Div(total).Mul(decimal.NewFromInt(100))
	return FormatAmount(pct)
}

// HalveAmount splits v into two currency-rounded parts that sum exactly to
// v. The first part is v/2 rounded to cents; the second carries whatever
// remains, so an odd cent never goes missing.
func HalveAmount(v decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	half := v.Div(decimal.NewFromInt(2)).Round(2)
	return half, v.Sub(half)
}
