package workflows

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/geofencing/internal/core/domain"
	"github.com/samirrijal/geofencing/internal/core/usecases"
)

// AlertActivities holds the activity implementations for the alert workflow.
type AlertActivities struct {
	Alerts *usecases.AlertService
}

// RecordEvent appends the event to the transition history.
func (a *AlertActivities) RecordEvent(ctx context.Context, event domain.RegionEvent) error {
	return a.Alerts.Record(ctx, &event)
}

// PublishEvent fans the event out on the broker.
func (a *AlertActivities) PublishEvent(ctx context.Context, event domain.RegionEvent) error {
	return a.Alerts.Publish(ctx, &event)
}

// SendAlert pushes the alert text to the device.
func (a *AlertActivities) SendAlert(ctx context.Context, event domain.RegionEvent) error {
	if event.DeviceID == "" {
		return temporal.NewNonRetryableApplicationError("event has no device", "InvalidEvent", errors.New("empty device id"))
	}
	activity.GetLogger(ctx).Info("sending alert", "device_id", event.DeviceID, "region_id", event.RegionID)
	return a.Alerts.Notify(ctx, &event)
}
