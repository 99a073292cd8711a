package temporal

import (
	"context"
	"fmt"

	"go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"

	"github.com/samirrijal/geofencing/internal/core/domain"
	"github.com/samirrijal/geofencing/internal/core/ports"
	"github.com/samirrijal/geofencing/internal/workflows"
)

var _ ports.AlertDispatcher = (*Dispatcher)(nil)

// Dispatcher implements ports.AlertDispatcher by starting an AlertWorkflow
// per event. The workflow ID is derived from the event ID, so a repeated
// dispatch of the same event is rejected by the server.
type Dispatcher struct {
	client    client.Client
	taskQueue string
}

// Dial connects to the Temporal frontend.
func Dial(hostPort, namespace string) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  hostPort,
		Namespace: namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("temporal dial: %w", err)
	}
	return c, nil
}

// NewDispatcher creates a Dispatcher on the given task queue.
func NewDispatcher(c client.Client, taskQueue string) *Dispatcher {
	if taskQueue == "" {
		taskQueue = workflows.TaskQueue
	}
	return &Dispatcher{client: c, taskQueue: taskQueue}
}

func (d *Dispatcher) Dispatch(ctx context.Context, event *domain.RegionEvent) error {
	opts := client.StartWorkflowOptions{
		ID:                    WorkflowID(event),
		TaskQueue:             d.taskQueue,
		WorkflowIDReusePolicy: enums.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}
	_, err := d.client.ExecuteWorkflow(ctx, opts, workflows.AlertWorkflow, *event)
	if err != nil {
		return fmt.Errorf("start alert workflow: %w", err)
	}
	return nil
}

// WorkflowID is alert-<event id>.
func WorkflowID(event *domain.RegionEvent) string {
	return "alert-" + event.ID
}
