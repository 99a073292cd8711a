package usecases

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/geofencing/internal/core/domain"
	"github.com/samirrijal/geofencing/internal/core/ports"
	"github.com/samirrijal/geofencing/internal/pkg/logging"
	"github.com/samirrijal/geofencing/internal/pkg/metrics"
	"github.com/samirrijal/geofencing/internal/pkg/telemetry"
)

// AlertTitle is the heading used for every transition notification.
const AlertTitle = "Notification"

// AlertService delivers region events: history, broker fan-out and push.
// Any of its collaborators may be nil.
type AlertService struct {
	events    ports.RegionEventRepository
	publisher ports.EventPublisher
	notifier  ports.NotificationService
}

// NewAlertService creates a new AlertService.
func NewAlertService(
	events ports.RegionEventRepository,
	publisher ports.EventPublisher,
	notifier ports.NotificationService,
) *AlertService {
	return &AlertService{events: events, publisher: publisher, notifier: notifier}
}

// Dispatch implements ports.AlertDispatcher by delivering inline.
func (s *AlertService) Dispatch(ctx context.Context, event *domain.RegionEvent) error {
	return s.Deliver(ctx, event)
}

// Deliver runs every delivery step even when an earlier one fails and
// returns the joined errors.
func (s *AlertService) Deliver(ctx context.Context, event *domain.RegionEvent) error {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanAlertDeliver,
		attribute.String("event.id", event.ID), attribute.String("region.id", event.RegionID))
	defer span.End()

	err := errors.Join(
		s.Record(ctx, event),
		s.Publish(ctx, event),
		s.Notify(ctx, event),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "alert delivery incomplete")
	}
	return err
}

// Record stores the event in the transition history.
func (s *AlertService) Record(ctx context.Context, event *domain.RegionEvent) error {
	if s.events == nil {
		return nil
	}
	if err := s.events.Insert(ctx, event); err != nil {
		metrics.AlertDeliveryErrors.WithLabelValues("record").Inc()
		return fmt.Errorf("record event %s: %w", event.ID, err)
	}
	return nil
}

// Publish fans the event out on the broker.
func (s *AlertService) Publish(ctx context.Context, event *domain.RegionEvent) error {
	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.PublishRegionEvent(ctx, event); err != nil {
		metrics.AlertDeliveryErrors.WithLabelValues("publish").Inc()
		return fmt.Errorf("publish event %s: %w", event.ID, err)
	}
	return nil
}

// Notify sends the alert to the device.
func (s *AlertService) Notify(ctx context.Context, event *domain.RegionEvent) error {
	if s.notifier == nil {
		logging.FromContext(ctx).Info("alert (no notifier)",
			"device_id", event.DeviceID, "message", event.Message)
		return nil
	}
	if err := s.notifier.SendPush(ctx, event.DeviceID, AlertTitle, event.Message); err != nil {
		metrics.AlertDeliveryErrors.WithLabelValues("notify").Inc()
		return fmt.Errorf("notify device %s: %w", event.DeviceID, err)
	}
	return nil
}

// History returns the most recent events for a region, newest first.
func (s *AlertService) History(ctx context.Context, regionID string, limit int) ([]domain.RegionEvent, error) {
	if s.events == nil {
		return nil, errors.New("event history not configured")
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.events.ListByRegion(ctx, regionID, limit)
}
