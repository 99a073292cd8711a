package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/geofencing/internal/pkg/metrics"
)

// RouterConfig tunes the middleware stack.
type RouterConfig struct {
	RateLimit   int           // requests per minute per IP; 0 disables
	Timeout     time.Duration // per-request timeout for /v1 handlers
	OpenAPIPath string
	APIVersion  string
}

// DefaultRouterConfig is used by SetupRoutes.
var DefaultRouterConfig = RouterConfig{
	RateLimit:   120,
	Timeout:     15 * time.Second,
	OpenAPIPath: "api/openapi.yaml",
	APIVersion:  "1.0.0",
}

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	SetupRoutesWithConfig(app, deps, DefaultRouterConfig)
}

// SetupRoutesWithConfig is SetupRoutes with an explicit middleware config.
func SetupRoutesWithConfig(app *fiber.App, deps *Dependencies, cfg RouterConfig) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	if cfg.RateLimit > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimit,
			Expiration: 1 * time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
			},
		}))
	}

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", cfg.APIVersion)
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	withTimeout := func(h fiber.Handler) fiber.Handler {
		if cfg.Timeout <= 0 {
			return h
		}
		return timeout.NewWithContext(h, cfg.Timeout)
	}

	v1 := app.Group("/v1")
	v1.Post("/regions", withTimeout(CreateRegionHandler(deps)))
	v1.Get("/regions", withTimeout(ListRegionsHandler(deps)))
	v1.Get("/regions/summary", withTimeout(RegionSummaryHandler(deps)))
	v1.Get("/regions/:id", withTimeout(GetRegionHandler(deps)))
	v1.Delete("/regions/:id", withTimeout(DeleteRegionHandler(deps)))
	v1.Get("/regions/:id/events", withTimeout(RegionEventsHandler(deps)))
	v1.Post("/locations", withTimeout(PostLocationHandler(deps)))
	v1.Get("/monitor", withTimeout(GetMonitorHandler(deps)))
	v1.Put("/monitor/authorization", withTimeout(SetAuthorizationHandler(deps)))

	app.Post("/graphql", GraphQLHandler(deps))

	SetupDocs(app, cfg.OpenAPIPath)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
