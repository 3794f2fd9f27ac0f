package sales

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salonledger/internal/domain"
)

func saleAt(ts string, total string, method domain.PaymentMethod, items ...domain.LineItem) domain.Sale {
	at, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		panic(err)
	}
	return domain.Sale{
		Timestamp:     at,
		Date:          at.Format(time.DateOnly),
		PaymentMethod: method,
		Items:         items,
		SaleTotals:    domain.SaleTotals{Total: dec(total)},
	}
}

func TestComputePeriodAggregatesBasics(t *testing.T) {
	history := []domain.Sale{
		saleAt("2026-03-01T09:00:00Z", "100", domain.PaymentCash, item("Shampoo", "50", 2)),
		saleAt("2026-03-01T15:00:00Z", "50", domain.PaymentCard, item("Polish", "50", 1)),
		saleAt("2026-03-02T10:00:00Z", "300", "", item("Shampoo", "50", 6)),
		saleAt("2026-03-05T10:00:00Z", "999", domain.PaymentEFT, item("Outside", "999", 1)),
	}
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)

	agg := ComputePeriodAggregates(history, start, end, time.UTC)

	assert.Equal(t, 3, agg.TotalCount)
	assertAmount(t, "450", agg.TotalRevenue, "revenue")
	assertAmount(t, "150", agg.AverageTicket, "average")
	require.NotNil(t, agg.BestDay)
	assert.Equal(t, "2026-03-02", agg.BestDay.Date)
	assertAmount(t, "300", agg.BestDay.Amount, "best day")
	assert.Equal(t, []domain.ProductQuantity{{Name: "Shampoo", Quantity: 8}, {Name: "Polish", Quantity: 1}}, agg.TopProducts)
	assert.Equal(t, map[string]int{"cash": 2, "card": 1}, agg.PaymentMethodCounts)
}

func TestComputePeriodAggregatesEmptyPeriod(t *testing.T) {
	agg := ComputePeriodAggregates(nil, time.Time{}, time.Time{}, time.UTC)

	assert.Zero(t, agg.TotalCount)
	assert.True(t, agg.TotalRevenue.IsZero())
	assert.True(t, agg.AverageTicket.IsZero())
	assert.Nil(t, agg.BestDay)
	assert.Empty(t, agg.TopProducts)
	assert.Empty(t, agg.PaymentMethodCounts)
}

func TestBestDayTieKeepsFirstDate(t *testing.T) {
	history := []domain.Sale{
		saleAt("2026-03-01T09:00:00Z", "80", domain.PaymentCash),
		saleAt("2026-03-02T09:00:00Z", "80", domain.PaymentCash),
	}
	agg := ComputePeriodAggregates(history, time.Time{}, time.Time{}, time.UTC)
	require.NotNil(t, agg.BestDay)
	assert.Equal(t, "2026-03-01", agg.BestDay.Date)
}

func TestTopProductsStableOnTiesAndTruncated(t *testing.T) {
	history := []domain.Sale{
		saleAt("2026-03-01T09:00:00Z", "1", domain.PaymentCash,
			item("Beta", "1", 2), item("Alpha", "1", 2), item("Gamma", "1", 5)),
		saleAt("2026-03-01T10:00:00Z", "1", domain.PaymentCash,
			item("Delta", "1", 1), item("Epsilon", "1", 1), item("Zeta", "1", 1)),
	}
	agg := ComputePeriodAggregates(history, time.Time{}, time.Time{}, time.UTC)

	names := make([]string, 0, len(agg.TopProducts))
	for _, p := range agg.TopProducts {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"Gamma", "Beta", "Alpha", "Delta", "Epsilon"}, names)
}

func TestGrowthThreeWayRule(t *testing.T) {
	assert.True(t, Growth(decimal.Zero, decimal.Zero).IsZero())
	assertAmount(t, "100", Growth(dec("50"), decimal.Zero), "first revenue")
	assertAmount(t, "50", Growth(dec("150"), dec("100")), "increase")
	assertAmount(t, "-25", Growth(dec("75"), dec("100")), "decrease")
	assertAmount(t, "-100", Growth(decimal.Zero, dec("100")), "drop to zero")
}

func TestDailyRevenueSortedByDate(t *testing.T) {
	history := []domain.Sale{
		saleAt("2026-03-03T09:00:00Z", "10", domain.PaymentCash),
		saleAt("2026-03-01T09:00:00Z", "20", domain.PaymentCash),
		saleAt("2026-03-03T12:00:00Z", "5", domain.PaymentCard),
	}
	series := DailyRevenue(history, time.Time{}, time.Time{}, time.UTC)
	require.Len(t, series, 2)
	assert.Equal(t, "2026-03-01", series[0].Date)
	assert.Equal(t, "2026-03-03", series[1].Date)
	assertAmount(t, "15", series[1].Revenue, "revenue")
	assert.Equal(t, 2, series[1].Sales)
}

func TestUndatedSaleGroupedByBusinessZone(t *testing.T) {
	sast := time.FixedZone("SAST", 2*60*60)
	late := saleAt("2026-03-14T23:30:00Z", "40", domain.PaymentCash)
	late.Date = ""

	assert.Equal(t, "2026-03-15", SaleDate(late, sast))
	assert.Equal(t, "2026-03-14", SaleDate(late, nil))

	agg := ComputePeriodAggregates([]domain.Sale{late}, time.Time{}, time.Time{}, sast)
	require.NotNil(t, agg.BestDay)
	assert.Equal(t, "2026-03-15", agg.BestDay.Date)

	series := DailyRevenue([]domain.Sale{late}, time.Time{}, time.Time{}, sast)
	require.Len(t, series, 1)
	assert.Equal(t, "2026-03-15", series[0].Date)
}
