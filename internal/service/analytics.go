package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"salonledger/internal/domain"
	"salonledger/internal/metrics"
	"salonledger/internal/sales"
	"salonledger/internal/store"
)

const recentSalesLimit = 5

// AnalyticsRanges lists the accepted range keys.
var AnalyticsRanges = []string{"7d", "30d", "90d", "month", "ytd", "all"}

type window struct {
	from, to         time.Time
	prevFrom, prevTo time.Time
	hasPrevious      bool
}

// Analytics aggregates the owner's sales for rangeKey and compares them with
// the preceding period. Ranges without one compare against zero. Reports are
// cached per owner until a sale changes.
func (s *Service) Analytics(ctx context.Context, sess domain.Session, rangeKey string) (*domain.AnalyticsReport, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if rangeKey == "" {
		rangeKey = "30d"
	}
	win, ok := s.analyticsWindow(rangeKey)
	if !ok {
		return nil, invalidField("range", "must be one of "+strings.Join(AnalyticsRanges, " "))
	}

	cacheKey := rangeKey + ":" + s.today()
	cached, slot, hit, err := s.analytics.Get(ctx, sess.OwnerID, cacheKey)
	switch {
	case err != nil:
		metrics.AnalyticsCacheLookups.WithLabelValues("error").Inc()
		s.log.Warn("analytics cache read failed", zap.String("owner_id", sess.OwnerID), zap.Error(err))
	case hit:
		metrics.AnalyticsCacheLookups.WithLabelValues("hit").Inc()
		return cached, nil
	default:
		metrics.AnalyticsCacheLookups.WithLabelValues("miss").Inc()
	}

	history, err := s.salesHistory(ctx, sess)
	if err != nil {
		return nil, err
	}

	report := &domain.AnalyticsReport{
		Range:       rangeKey,
		From:        win.from,
		To:          win.to,
		Current:     sales.ComputePeriodAggregates(history, win.from, win.to, s.loc),
		Daily:       sales.DailyRevenue(history, win.from, win.to, s.loc),
		GeneratedAt: s.now(),
	}
	previousRevenue := decimal.Zero
	if win.hasPrevious {
		previous := sales.ComputePeriodAggregates(history, win.prevFrom, win.prevTo, s.loc)
		report.Previous = &previous
		previousRevenue = previous.TotalRevenue
	}
	report.RevenueGrowth = sales.Growth(report.Current.TotalRevenue, previousRevenue)

	// slot pins the cache generation seen before reading sales, so a sale
	// written meanwhile leaves this report unreachable.
	if err := s.analytics.Set(ctx, slot, report, s.analyticsTTL); err != nil {
		s.log.Warn("analytics cache write failed", zap.String("owner_id", sess.OwnerID), zap.Error(err))
	}
	return report, nil
}

func (s *Service) analyticsWindow(rangeKey string) (window, bool) {
	now := s.now().In(s.loc)
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	endOfToday := startOfToday.AddDate(0, 0, 1)

	lastDays := func(n int) window {
		from := endOfToday.AddDate(0, 0, -n)
		return window{
			from:        from,
			to:          endOfToday,
			prevFrom:    from.AddDate(0, 0, -n),
			prevTo:      from,
			hasPrevious: true,
		}
	}

	switch rangeKey {
	case "7d":
		return lastDays(7), true
	case "30d":
		return lastDays(30), true
	case "90d":
		return lastDays(90), true
	case "month":
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)
		return window{
			from:        first,
			to:          first.AddDate(0, 1, 0),
			prevFrom:    first.AddDate(0, -1, 0),
			prevTo:      first,
			hasPrevious: true,
		}, true
	case "ytd":
		return window{
			from: time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, s.loc),
			to:   endOfToday,
		}, true
	case "all":
		return window{}, true
	default:
		return window{}, false
	}
}

// Dashboard summarizes the owner's sales, catalogue and stock alerts.
func (s *Service) Dashboard(ctx context.Context, sess domain.Session) (domain.DashboardSummary, error) {
	history, err := s.salesHistory(ctx, sess)
	if err != nil {
		return domain.DashboardSummary{}, err
	}
	products, err := s.ListProducts(ctx, sess, domain.ProductFilter{})
	if err != nil {
		return domain.DashboardSummary{}, err
	}
	suppliers, err := s.docs.GetCollection(ctx, store.CollectionSuppliers, sess.OwnerID, nil)
	if err != nil {
		return domain.DashboardSummary{}, err
	}

	summary := domain.DashboardSummary{
		TotalSales:        len(history),
		TotalProducts:     len(products),
		TotalSuppliers:    len(suppliers),
		TotalRevenue:      decimal.Zero,
		TodaySales:        decimal.Zero,
		AverageOrderValue: decimal.Zero,
		RecentSales:       make([]domain.Sale, 0, recentSalesLimit),
		LowStockProducts:  make([]domain.Product, 0, s.lowStock),
	}

	today := s.today()
	for _, sale := range history {
		summary.TotalRevenue = summary.TotalRevenue.Add(sale.Total)
		if sales.SaleDate(sale, s.loc) == today {
			summary.TodaySales = summary.TodaySales.Add(sale.Total)
		}
	}
	if len(history) > 0 {
		summary.AverageOrderValue = summary.TotalRevenue.Div(decimal.NewFromInt(int64(len(history))))
	}
	for i := len(history) - 1; i >= 0 && len(summary.RecentSales) < recentSalesLimit; i-- {
		summary.RecentSales = append(summary.RecentSales, history[i])
	}
	for _, product := range products {
		if len(summary.LowStockProducts) == s.lowStock {
			break
		}
		if product.LowStock() {
			summary.LowStockProducts = append(summary.LowStockProducts, product)
		}
	}
	return summary, nil
}
