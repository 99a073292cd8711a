package ports

import (
	"context"

	"github.com/samirrijal/geofencing/internal/core/domain"
)

// RegionMonitor registers circular regions and reports boundary crossings.
type RegionMonitor interface {
	Available() bool
	Authorization() domain.Authorization
	SetAuthorization(auth domain.Authorization)
	MaxMonitoringDistance() float64
	StartMonitoring(region domain.MonitoredRegion) error
	StopMonitoring(id string)
	Monitored() []domain.MonitoredRegion
	Evaluate(update *domain.LocationUpdate) []domain.RegionEvent
	Status() domain.MonitorStatus
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishRegionEvent(ctx context.Context, event *domain.RegionEvent) error
	PublishRegionAdded(ctx context.Context, region *domain.Region) error
	PublishRegionRemoved(ctx context.Context, region *domain.Region) error
	PublishLocation(ctx context.Context, update *domain.LocationUpdate) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeLocations(ctx context.Context, handler func(ctx context.Context, update *domain.LocationUpdate) error) error
}

// AlertDispatcher hands a region event to the alert delivery path.
type AlertDispatcher interface {
	Dispatch(ctx context.Context, event *domain.RegionEvent) error
}

// NotificationService sends notifications (push, email, etc.).
type NotificationService interface {
	SendPush(ctx context.Context, deviceID, title, body string) error
}
