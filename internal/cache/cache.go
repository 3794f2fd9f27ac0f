package cache

import (
	"context"
	"time"

	"salonledger/internal/domain"
)

// Slot identifies where a report computed after a Get miss belongs. It pins
// the owner's cache generation seen by that Get, so a report stored after an
// Invalidate lands in a slot that is never read again.
type Slot struct {
	OwnerID    string
	Key        string
	Generation int64
}

// AnalyticsCache stores computed analytics reports per owner. Invalidate
// drops every report for the owner.
type AnalyticsCache interface {
	Get(ctx context.Context, ownerID string, key string) (*domain.AnalyticsReport, Slot, bool, error)
	Set(ctx context.Context, slot Slot, value *domain.AnalyticsReport, ttl time.Duration) error
	Invalidate(ctx context.Context, ownerID string) error
}

type NoopAnalyticsCache struct{}

func (NoopAnalyticsCache) Get(_ context.Context, ownerID string, key string) (*domain.AnalyticsReport, Slot, bool, error) {
	return nil, Slot{OwnerID: ownerID, Key: key}, false, nil
}

func (NoopAnalyticsCache) Set(_ context.Context, _ Slot, _ *domain.AnalyticsReport, _ time.Duration) error {
	return nil
}

func (NoopAnalyticsCache) Invalidate(_ context.Context, _ string) error {
	return nil
}
