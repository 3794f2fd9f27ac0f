// Package sales holds the pure sale arithmetic: per-sale totals, period
// aggregates and growth. Nothing here touches storage.
package sales

import (
	"math"

	"github.com/shopspring/decimal"

	"salonledger/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// ComputeSaleTotals sums the line items and applies the discount before tax.
// Non-finite or negative percentages count as 0 and the discount is capped at
// 100. Item prices and quantities are summed as given.
func ComputeSaleTotals(items []domain.LineItem, discountPercent float64, taxPercent float64) domain.SaleTotals {
	discount := sanitizePercent(discountPercent)
	if discount.GreaterThan(hundred) {
		discount = hundred
	}
	tax := sanitizePercent(taxPercent)

	subtotal := Subtotal(items)
	discountAmount := subtotal.Mul(discount).Div(hundred)
	taxable := subtotal.Sub(discountAmount)
	taxAmount := taxable.Mul(tax).Div(hundred)

	return domain.SaleTotals{
		Subtotal:       subtotal,
		DiscountAmount: discountAmount,
		TaxableAmount:  taxable,
		TaxAmount:      taxAmount,
		Total:          taxable.Add(taxAmount),
	}
}

func Subtotal(items []domain.LineItem) decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	return subtotal
}

// Display formats totals with two decimals.
func Display(t domain.SaleTotals) map[string]string {
	return map[string]string{
		"subtotal":        t.Subtotal.StringFixed(2),
		"discount_amount": t.DiscountAmount.StringFixed(2),
		"taxable_amount":  t.TaxableAmount.StringFixed(2),
		"tax_amount":      t.TaxAmount.StringFixed(2),
		"total":           t.Total.StringFixed(2),
	}
}

// Recompute derives the totals a stored sale should carry.
func Recompute(sale domain.Sale) domain.SaleTotals {
	return ComputeSaleTotals(sale.Items, sale.DiscountPercent, sale.TaxPercent)
}

func sanitizePercent(p float64) decimal.Decimal {
	if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(p)
}
