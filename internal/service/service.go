package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"salonledger/internal/cache"
	"salonledger/internal/domain"
	"salonledger/internal/store"
)

type Options struct {
	DefaultTaxPercent float64
	Location          *time.Location
	AnalyticsTTL      time.Duration
	LowStockLimit     int
	Now               func() time.Time
}

type Service struct {
	docs         store.DocumentStore
	analytics    cache.AnalyticsCache
	log          *zap.Logger
	defaultTax   float64
	loc          *time.Location
	analyticsTTL time.Duration
	lowStock     int
	now          func() time.Time
}

func New(docs store.DocumentStore, analytics cache.AnalyticsCache, log *zap.Logger, opts Options) *Service {
	if analytics == nil {
		analytics = cache.NoopAnalyticsCache{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.AnalyticsTTL <= 0 {
		opts.AnalyticsTTL = time.Minute
	}
	if opts.LowStockLimit <= 0 {
		opts.LowStockLimit = 5
	}
	if opts.DefaultTaxPercent < 0 {
		opts.DefaultTaxPercent = 0
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}

	return &Service{
		docs:         docs,
		analytics:    analytics,
		log:          log.Named("service"),
		defaultTax:   opts.DefaultTaxPercent,
		loc:          opts.Location,
		analyticsTTL: opts.AnalyticsTTL,
		lowStock:     opts.LowStockLimit,
		now:          opts.Now,
	}
}

func (s *Service) Location() *time.Location {
	return s.loc
}

func requireSession(sess domain.Session) error {
	if !sess.Authenticated() {
		return ErrNotAuthenticated
	}
	return nil
}

// getOwned loads a document and hides records that belong to another owner.
func (s *Service) getOwned(ctx context.Context, sess domain.Session, collection string, id string, dest any) error {
	record, err := s.docs.GetDocument(ctx, collection, id)
	if err != nil {
		return err
	}
	if record.OwnerID != sess.OwnerID {
		return store.ErrNotFound
	}
	return record.Decode(dest)
}

func decodeAll[T any](records []store.Record) ([]T, error) {
	out := make([]T, 0, len(records))
	for _, record := range records {
		var item T
		if err := record.Decode(&item); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *Service) invalidateAnalytics(ctx context.Context, ownerID string) {
	if err := s.analytics.Invalidate(ctx, ownerID); err != nil {
		s.log.Warn("analytics cache invalidation failed", zap.String("owner_id", ownerID), zap.Error(err))
	}
}

func (s *Service) today() string {
	return s.now().In(s.loc).Format(time.DateOnly)
}
