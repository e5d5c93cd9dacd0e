// Package pricing does the money arithmetic for carts, orders and coupons.
// Amounts are kept as float64 at the edges and computed in decimal.
package pricing

import (
	"math"

	"github.com/shopspring/decimal"
)

// tolerance is half a cent; amounts closer than this are the same price.
var tolerance = decimal.New(5, -3)

// LineTotal returns price × quantity rounded to cents.
func LineTotal(price float64, quantity int) float64 {
	return decimal.NewFromFloat(price).
		Mul(decimal.NewFromInt(int64(quantity))).
		Round(2).
		InexactFloat64()
}

// Sum adds amounts and rounds the result to cents.
func Sum(amounts ...float64) float64 {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(decimal.NewFromFloat(a))
	}
	return total.Round(2).InexactFloat64()
}

// Equal reports whether two amounts agree to the cent. NaN and infinities
// equal nothing.
func Equal(a, b float64) bool {
	if !finite(a) || !finite(b) {
		return false
	}
	return decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Abs().LessThan(tolerance)
}

// Format renders an amount with two decimals, as payment providers expect.
func Format(amount float64) string {
	return decimal.NewFromFloat(amount).StringFixed(2)
}

// Discount returns subtotal × percent / 100, capped at maxDiscount and
// rounded to cents. A non-positive cap means uncapped.
func Discount(subtotal float64, percent int, maxDiscount float64) float64 {
	d := decimal.NewFromFloat(subtotal).
		Mul(decimal.NewFromInt(int64(percent))).
		Div(decimal.NewFromInt(100))
	if maxDiscount > 0 {
		d = decimal.Min(d, decimal.NewFromFloat(maxDiscount))
	}
	return d.Round(2).InexactFloat64()
}

// Subtract returns a - b, never below zero, rounded to cents.
func Subtract(a, b float64) float64 {
	d := decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b))
	if d.IsNegative() {
		return 0
	}
	return d.Round(2).InexactFloat64()
}

// ApplyOffer returns price less percent, rounded to cents. Percentages
// outside 1..100 leave the price unchanged.
func ApplyOffer(price float64, percent int) float64 {
	if percent <= 0 || percent > 100 {
		return price
	}
	return decimal.NewFromFloat(price).
		Mul(decimal.NewFromInt(int64(100 - percent))).
		Div(decimal.NewFromInt(100)).
		Round(2).
		InexactFloat64()
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
