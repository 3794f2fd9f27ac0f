package sales

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"salonledger/internal/domain"
)

const topProductLimit = 5

// ComputePeriodAggregates reduces the sales whose timestamp falls in
// [start, end). A zero start or end leaves that side unbounded. Sales without
// a recorded date are grouped by their timestamp's date in loc. Ties for best
// day and top products keep the first-encountered entry, so callers should
// pass sales in chronological order.
func ComputePeriodAggregates(sales []domain.Sale, start time.Time, end time.Time, loc *time.Location) domain.PeriodAggregates {
	agg := domain.PeriodAggregates{
		TotalRevenue:        decimal.Zero,
		AverageTicket:       decimal.Zero,
		TopProducts:         []domain.ProductQuantity{},
		PaymentMethodCounts: map[string]int{},
	}

	byDate := map[string]decimal.Decimal{}
	dateOrder := make([]string, 0, 31)
	byName := map[string]int{}
	nameOrder := make([]string, 0, 16)

	for _, sale := range sales {
		if !InWindow(sale.Timestamp, start, end) {
			continue
		}
		agg.TotalCount++
		agg.TotalRevenue = agg.TotalRevenue.Add(sale.Total)

		date := SaleDate(sale, loc)
		if _, seen := byDate[date]; !seen {
			dateOrder = append(dateOrder, date)
			byDate[date] = decimal.Zero
		}
		byDate[date] = byDate[date].Add(sale.Total)

		for _, item := range sale.Items {
			if _, seen := byName[item.Name]; !seen {
				nameOrder = append(nameOrder, item.Name)
			}
			byName[item.Name] += item.Quantity
		}

		method := string(sale.PaymentMethod)
		if method == "" {
			method = string(domain.PaymentCash)
		}
		agg.PaymentMethodCounts[method]++
	}

	if agg.TotalCount > 0 {
		agg.AverageTicket = agg.TotalRevenue.Div(decimal.NewFromInt(int64(agg.TotalCount)))
	}

	for _, date := range dateOrder {
		amount := byDate[date]
		if agg.BestDay == nil || amount.GreaterThan(agg.BestDay.Amount) {
			agg.BestDay = &domain.BestDay{Date: date, Amount: amount}
		}
	}

	top := make([]domain.ProductQuantity, 0, len(nameOrder))
	for _, name := range nameOrder {
		top = append(top, domain.ProductQuantity{Name: name, Quantity: byName[name]})
	}
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].Quantity > top[j].Quantity
	})
	if len(top) > topProductLimit {
		top = top[:topProductLimit]
	}
	agg.TopProducts = top

	return agg
}

// Growth compares two revenue figures as a percentage. With no previous
// revenue it is 100 when there is current revenue and 0 otherwise.
func Growth(current decimal.Decimal, previous decimal.Decimal) decimal.Decimal {
	if previous.IsPositive() {
		return current.Sub(previous).Div(previous).Mul(hundred)
	}
	if current.IsPositive() {
		return hundred
	}
	return decimal.Zero
}

// DailyRevenue groups the sales in [start, end) by date, ascending.
func DailyRevenue(sales []domain.Sale, start time.Time, end time.Time, loc *time.Location) []domain.DayRevenue {
	byDate := map[string]*domain.DayRevenue{}
	for _, sale := range sales {
		if !InWindow(sale.Timestamp, start, end) {
			continue
		}
		date := SaleDate(sale, loc)
		day, ok := byDate[date]
		if !ok {
			day = &domain.DayRevenue{Date: date, Revenue: decimal.Zero}
			byDate[date] = day
		}
		day.Revenue = day.Revenue.Add(sale.Total)
		day.Sales++
	}

	series := make([]domain.DayRevenue, 0, len(byDate))
	for _, day := range byDate {
		series = append(series, *day)
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].Date < series[j].Date
	})
	return series
}

func InWindow(at time.Time, start time.Time, end time.Time) bool {
	if !start.IsZero() && at.Before(start) {
		return false
	}
	if !end.IsZero() && !at.Before(end) {
		return false
	}
	return true
}

// SaleDate is the calendar date recorded on the sale, falling back to the
// timestamp's date in loc. A nil loc means UTC.
func SaleDate(sale domain.Sale, loc *time.Location) string {
	if sale.Date != "" {
		return sale.Date
	}
	if loc == nil {
		loc = time.UTC
	}
	return sale.Timestamp.In(loc).Format(time.DateOnly)
}
