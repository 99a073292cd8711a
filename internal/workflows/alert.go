package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/geofencing/internal/core/domain"
)

// TaskQueue is the default queue the notifier worker polls.
const TaskQueue = "geofence-alerts"

// AlertWorkflow durably delivers one region event: it is recorded, then
// published, then pushed to the device. A failed push does not undo the
// history or broker steps; alerts are best-effort.
func AlertWorkflow(ctx workflow.Context, event domain.RegionEvent) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting alert workflow", "regionID", event.RegionID, "transition", event.Transition)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: time.Second,
			MaximumAttempts: 5,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	// Step 1: history
	if err := workflow.ExecuteActivity(ctx, "RecordEvent", event).Get(ctx, nil); err != nil {
		return err
	}

	// Step 2: broker
	if err := workflow.ExecuteActivity(ctx, "PublishEvent", event).Get(ctx, nil); err != nil {
		return err
	}

	// Step 3: push, fewer attempts
	pushCtx := workflow.WithRetryPolicy(ctx, temporal.RetryPolicy{
		InitialInterval: time.Second,
		MaximumAttempts: 3,
	})
	if err := workflow.ExecuteActivity(pushCtx, "SendAlert", event).Get(pushCtx, nil); err != nil {
		logger.Warn("push failed, alert dropped", "deviceID", event.DeviceID, "error", err)
		return nil
	}

	logger.Info("Alert delivered", "eventID", event.ID)
	return nil
}
