package usecases

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/geofencing/internal/core/domain"
	"github.com/samirrijal/geofencing/internal/core/ports"
	"github.com/samirrijal/geofencing/internal/pkg/logging"
	"github.com/samirrijal/geofencing/internal/pkg/metrics"
	"github.com/samirrijal/geofencing/internal/pkg/telemetry"
)

// ErrInvalidLocation is returned for updates without a device or with
// coordinates outside WGS 84 bounds.
var ErrInvalidLocation = errors.New("invalid location update")

// MonitorService turns device location updates into region alerts.
type MonitorService struct {
	monitor    ports.RegionMonitor
	regions    *RegionService
	dispatcher ports.AlertDispatcher
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(monitor ports.RegionMonitor, regions *RegionService, dispatcher ports.AlertDispatcher) *MonitorService {
	return &MonitorService{monitor: monitor, regions: regions, dispatcher: dispatcher}
}

// ProcessLocation evaluates one update and dispatches every resulting
// event. Dispatch failures are logged and not retried here.
func (s *MonitorService) ProcessLocation(ctx context.Context, source string, update *domain.LocationUpdate) ([]domain.RegionEvent, error) {
	if update.DeviceID == "" {
		return nil, fmt.Errorf("%w: device_id is required", ErrInvalidLocation)
	}
	if !update.Location.Valid() {
		return nil, fmt.Errorf("%w: coordinates out of range %s", ErrInvalidLocation, update.Location)
	}

	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanLocationProcess,
		attribute.String("device.id", update.DeviceID), attribute.String("source", source))
	defer span.End()

	metrics.LocationsProcessed.WithLabelValues(source).Inc()

	events := s.monitor.Evaluate(update)
	span.SetAttributes(attribute.Int("events", len(events)))
	log := logging.FromContext(ctx)

	for i := range events {
		ev := &events[i]
		if r, err := s.regions.Get(ctx, ev.RegionID); err == nil {
			ev.Note = r.Note
		}

		metrics.Transitions.WithLabelValues(string(ev.Transition)).Inc()
		log.Info("geofence triggered",
			"region_id", ev.RegionID, "device_id", ev.DeviceID, "transition", ev.Transition)

		if s.dispatcher == nil {
			continue
		}
		if err := s.dispatcher.Dispatch(ctx, ev); err != nil {
			log.Error("dispatch alert failed", "event_id", ev.ID, "region_id", ev.RegionID, "error", err)
			metrics.AlertDeliveryErrors.WithLabelValues("dispatch").Inc()
		}
	}
	return events, nil
}
