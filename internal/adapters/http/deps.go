package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/geofencing/internal/core/usecases"
)

// Pinger is any backend the readiness probe can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Regions *usecases.RegionService
	Monitor *usecases.MonitorService
	Alerts  *usecases.AlertService
	NATS    *nats.Conn
	DB      Pinger // transition history, optional
	Store   Pinger // savedItems store
}
