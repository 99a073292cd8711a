package ports

import (
	"context"

	"github.com/samirrijal/geofencing/internal/core/domain"
)

// RegionStore persists the full region list as one snapshot.
type RegionStore interface {
	Load(ctx context.Context) ([]domain.Region, error)
	Save(ctx context.Context, regions []domain.Region) error
}

// RegionEventRepository persists delivered entry/exit events.
type RegionEventRepository interface {
	Insert(ctx context.Context, event *domain.RegionEvent) error
	ListByRegion(ctx context.Context, regionID string, limit int) ([]domain.RegionEvent, error)
}
