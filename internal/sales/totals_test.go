package sales

import (
	"math"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"salonledger/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertAmount(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "%s: want %s, got %s", field, want, got.String())
}

func item(name string, price string, qty int) domain.LineItem {
	return domain.LineItem{ProductID: "p-" + name, Name: name, UnitPrice: dec(price), Quantity: qty}
}

func TestComputeSaleTotalsDiscountBeforeTax(t *testing.T) {
	totals := ComputeSaleTotals([]domain.LineItem{item("cut", "100", 2)}, 10, 15)

	assertAmount(t, "200", totals.Subtotal, "subtotal")
	assertAmount(t, "20", totals.DiscountAmount, "discount")
	assertAmount(t, "180", totals.TaxableAmount, "taxable")
	assertAmount(t, "27", totals.TaxAmount, "tax")
	assertAmount(t, "207", totals.Total, "total")
}

func TestComputeSaleTotalsEmptyItemsIsZero(t *testing.T) {
	for _, adj := range [][2]float64{{0, 0}, {10, 15}, {100, 200}, {math.NaN(), math.Inf(1)}} {
		totals := ComputeSaleTotals(nil, adj[0], adj[1])
		assert.True(t, totals.Subtotal.IsZero())
		assert.True(t, totals.DiscountAmount.IsZero())
		assert.True(t, totals.TaxableAmount.IsZero())
		assert.True(t, totals.TaxAmount.IsZero())
		assert.True(t, totals.Total.IsZero())
	}
}

func TestComputeSaleTotalsWithoutAdjustmentsEqualsSubtotal(t *testing.T) {
	items := []domain.LineItem{item("a", "19.99", 3), item("b", "0.01", 7), item("c", "1234.5", 1)}
	totals := ComputeSaleTotals(items, 0, 0)
	assert.True(t, totals.Total.Equal(totals.Subtotal))
	assertAmount(t, "1294.54", totals.Subtotal, "subtotal")
}

func TestComputeSaleTotalsSanitizesPercentages(t *testing.T) {
	items := []domain.LineItem{item("a", "50", 2)}

	cases := []struct {
		name     string
		discount float64
		tax      float64
		total    string
	}{
		{name: "negative discount counts as zero", discount: -5, tax: 0, total: "100"},
		{name: "NaN discount counts as zero", discount: math.NaN(), tax: 10, total: "110"},
		{name: "discount above 100 is capped", discount: 150, tax: 15, total: "0"},
		{name: "infinite tax counts as zero", discount: 0, tax: math.Inf(1), total: "100"},
		{name: "tax above 100 is allowed", discount: 0, tax: 150, total: "250"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assertAmount(t, tc.total, ComputeSaleTotals(items, tc.discount, tc.tax).Total, "total")
		})
	}
}

func TestComputeSaleTotalsSumsNonPositiveItemsFaithfully(t *testing.T) {
	items := []domain.LineItem{item("a", "10", 2), item("refund", "-5", 1), item("zero", "7", 0)}
	assertAmount(t, "15", ComputeSaleTotals(items, 0, 0).Subtotal, "subtotal")
}

func TestComputeSaleTotalsKeepsFullPrecision(t *testing.T) {
	items := []domain.LineItem{item("a", "0.333", 3)}
	totals := ComputeSaleTotals(items, 12.5, 15)

	assertAmount(t, "0.999", totals.Subtotal, "subtotal")
	assertAmount(t, "0.124875", totals.DiscountAmount, "discount")
	assertAmount(t, "0.874125", totals.TaxableAmount, "taxable")
	assertAmount(t, "1.00524375", totals.Total, "total")
	assert.Equal(t, "1.01", Display(totals)["total"])
}

func TestSubtotalIsAdditiveAcrossSplits(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		left := randomItems(rng)
		right := randomItems(rng)
		combined := append(append([]domain.LineItem{}, left...), right...)

		discount := float64(rng.Intn(101))
		tax := float64(rng.Intn(30))
		whole := ComputeSaleTotals(combined, discount, tax).Subtotal
		parts := ComputeSaleTotals(left, discount, tax).Subtotal.Add(ComputeSaleTotals(right, discount, tax).Subtotal)
		assert.Truef(t, whole.Equal(parts), "round %d: %s != %s", round, whole, parts)
	}
}

func randomItems(rng *rand.Rand) []domain.LineItem {
	n := rng.Intn(5)
	items := make([]domain.LineItem, 0, n)
	for i := 0; i < n; i++ {
		price := decimal.New(int64(rng.Intn(100000)), -2)
		items = append(items, domain.LineItem{Name: "x", UnitPrice: price, Quantity: 1 + rng.Intn(9)})
	}
	return items
}

func TestRecomputeMatchesStoredPercentages(t *testing.T) {
	items := []domain.LineItem{item("a", "100", 2)}
	sale := domain.Sale{Items: items, DiscountPercent: 10, TaxPercent: 15, SaleTotals: ComputeSaleTotals(items, 10, 15)}
	assert.True(t, Recompute(sale).Equal(sale.SaleTotals))
}
