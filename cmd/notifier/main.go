package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/geofencing/internal/adapters/nats"
	"github.com/samirrijal/geofencing/internal/adapters/postgres"
	"github.com/samirrijal/geofencing/internal/adapters/temporal"
	"github.com/samirrijal/geofencing/internal/core/ports"
	"github.com/samirrijal/geofencing/internal/core/usecases"
	"github.com/samirrijal/geofencing/internal/pkg/config"
	"github.com/samirrijal/geofencing/internal/pkg/logging"
	"github.com/samirrijal/geofencing/internal/pkg/telemetry"
	"github.com/samirrijal/geofencing/internal/workflows"
)

func main() {
	cfg, err := config.Load("geofence-notifier")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Without NATS, history is still recorded and pushes are logged only.
	var (
		publisher ports.EventPublisher
		notifier  ports.NotificationService
	)
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL, cfg.Push.SubjectPrefix)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		publisher, notifier = pub, pub
	}

	c, err := temporal.Dial(cfg.Temporal.HostPort, cfg.Temporal.Namespace)
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	alerts := usecases.NewAlertService(postgres.NewEventRepo(db), publisher, notifier)

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.AlertWorkflow)
	w.RegisterActivity(&workflows.AlertActivities{Alerts: alerts})

	slog.Info("notifier worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
