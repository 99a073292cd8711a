package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geofencing",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "geofencing",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "geofencing",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Region registry
	RegionsActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "geofencing",
		Subsystem: "regions",
		Name:      "active",
		Help:      "Regions currently held, by event type",
	}, []string{"event_type"})

	RegionOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geofencing",
		Subsystem: "regions",
		Name:      "operations_total",
		Help:      "Region add/remove operations",
	}, []string{"operation"})

	RegionPersistErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "geofencing",
		Subsystem: "regions",
		Name:      "persist_errors_total",
		Help:      "Failed writes of the region snapshot",
	})

	// Monitoring
	MonitoringRegistrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geofencing",
		Subsystem: "monitor",
		Name:      "registrations_total",
		Help:      "Region monitoring registration attempts by result",
	}, []string{"result"})

	LocationsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geofencing",
		Subsystem: "monitor",
		Name:      "locations_processed_total",
		Help:      "Location updates evaluated against monitored regions",
	}, []string{"source"})

	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geofencing",
		Subsystem: "monitor",
		Name:      "transitions_total",
		Help:      "Region entry/exit events emitted",
	}, []string{"transition"})

	AlertDeliveryErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geofencing",
		Subsystem: "alerts",
		Name:      "delivery_errors_total",
		Help:      "Failed alert delivery steps",
	}, []string{"step"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "geofencing",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "geofencing",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "geofencing",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "geofencing",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c *fiber.Ctx) error {
		handler(c.Context())
		return nil
	}
}

// SetRegionCounts publishes the size of each region view.
func SetRegionCounts(all, entry, exit int) {
	RegionsActive.WithLabelValues("all").Set(float64(all))
	RegionsActive.WithLabelValues("on-entry").Set(float64(entry))
	RegionsActive.WithLabelValues("on-exit").Set(float64(exit))
}

// UpdateDBPoolMetrics updates database pool metrics from pgx pool stats.
// It takes an interface so this package does not import pgxpool.
func UpdateDBPoolMetrics(stat interface{}) {
	type poolStat interface {
		AcquiredConns() int32
		IdleConns() int32
		TotalConns() int32
	}

	if s, ok := stat.(poolStat); ok {
		DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
		DBPoolConnsIdle.Set(float64(s.IdleConns()))
		DBPoolConnsOpen.Set(float64(s.TotalConns()))
	}
}
