package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/geofencing/internal/adapters/geofence"
	"github.com/samirrijal/geofencing/internal/adapters/http"
	natsadapter "github.com/samirrijal/geofencing/internal/adapters/nats"
	"github.com/samirrijal/geofencing/internal/adapters/postgres"
	"github.com/samirrijal/geofencing/internal/adapters/temporal"
	"github.com/samirrijal/geofencing/internal/adapters/valkey"
	"github.com/samirrijal/geofencing/internal/core/domain"
	"github.com/samirrijal/geofencing/internal/core/ports"
	"github.com/samirrijal/geofencing/internal/core/usecases"
	"github.com/samirrijal/geofencing/internal/pkg/config"
	"github.com/samirrijal/geofencing/internal/pkg/logging"
	"github.com/samirrijal/geofencing/internal/pkg/metrics"
	"github.com/samirrijal/geofencing/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("geofence-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
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

	// Region list storage
	store, err := valkey.New(cfg.Valkey.Addr, cfg.Storage.Key)
	if err != nil {
		log.Fatalf("valkey: %v", err)
	}
	defer store.Close()

	auth, err := domain.ParseAuthorization(cfg.Monitor.Authorization)
	if err != nil {
		log.Fatalf("monitor authorization: %v", err)
	}
	monitor := geofence.NewMonitor(geofence.Config{
		MaxDistance:   cfg.Monitor.MaxDistance,
		MaxRegions:    cfg.Monitor.MaxRegions,
		Authorization: auth,
		Available:     cfg.Monitor.Available,
		MaxDevices:    cfg.Monitor.MaxDevices,
		DeviceTTL:     cfg.Monitor.DeviceTTL,
	})

	deps := &http.Dependencies{Store: store}

	// Transition history is optional; without it alerts are still pushed.
	var events ports.RegionEventRepository
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		slog.Warn("database unavailable, history disabled", "error", err)
	} else {
		defer db.Close()
		events = postgres.NewEventRepo(db)
		deps.DB = db
		go reportPoolStats(ctx, db)
	}

	// NATS
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

	// Raw NATS connection for the WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer natsConn.Close()
		deps.NATS = natsConn
	}

	// Use cases
	regions := usecases.NewRegionService(store, monitor, publisher)
	if err := regions.Restore(ctx); err != nil {
		slog.Error("restore saved regions failed, starting empty", "error", err)
	}

	alerts := usecases.NewAlertService(events, publisher, notifier)

	var dispatcher ports.AlertDispatcher = alerts
	if cfg.Temporal.Enabled {
		c, err := temporal.Dial(cfg.Temporal.HostPort, cfg.Temporal.Namespace)
		if err != nil {
			slog.Warn("temporal unavailable, delivering alerts inline", "error", err)
		} else {
			defer c.Close()
			dispatcher = temporal.NewDispatcher(c, cfg.Temporal.TaskQueue)
		}
	}

	monitorSvc := usecases.NewMonitorService(monitor, regions, dispatcher)

	deps.Regions = regions
	deps.Monitor = monitorSvc
	deps.Alerts = alerts

	// Location feed from devices
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats subscriber unavailable, locations accepted over HTTP only", "error", err)
	} else {
		defer sub.Close()
		err := sub.SubscribeLocations(ctx, func(ctx context.Context, u *domain.LocationUpdate) error {
			_, err := monitorSvc.ProcessLocation(ctx, "nats", u)
			return err
		})
		if err != nil {
			slog.Warn("subscribe locations failed", "error", err)
		}
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    256 * 1024,
		AppName:      "Geofencing API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "regions", regions.Count(ctx, domain.FilterAll))
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

func reportPoolStats(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(db.Pool.Stat())
		}
	}
}
