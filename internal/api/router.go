package api

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/genbi-manufacturing/backend/internal/api/handlers"
	"github.com/genbi-manufacturing/backend/internal/metrics"
	"github.com/genbi-manufacturing/backend/internal/middleware/disconnect"
	"github.com/genbi-manufacturing/backend/internal/middleware/ratelimit"
	"github.com/genbi-manufacturing/backend/internal/middleware/security"
	"github.com/genbi-manufacturing/backend/internal/middleware/validation"
	"github.com/genbi-manufacturing/backend/pkg/config"
	"github.com/genbi-manufacturing/backend/pkg/logger"
)

type Handlers struct {
	Query     *handlers.QueryHandler
	Glossary  *handlers.GlossaryHandler
	Dashboard *handlers.DashboardHandler
	Health    *handlers.HealthHandler
	WebSocket *handlers.WebSocketHandler
}

// NewApp builds the fiber app with middleware and routes. The returned
// limiter, if any, must be stopped by the caller.
func NewApp(cfg *config.Config, h Handlers) (*fiber.App, *ratelimit.RateLimiter) {
	app := fiber.New(fiber.Config{
		AppName:               "genbi-manufacturing",
		ReadTimeout:           time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:          time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:             cfg.Server.BodyLimit,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	if cfg.Server.Development {
		app.Use(fiberlogger.New())
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: joinOrigins(cfg.Server.AllowedOrigins),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		IsDevelopment:  cfg.Server.Development,
	}))

	api := app.Group("/api")
	api.Use(disconnect.New())

	var limiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(ratelimit.Config{
			MaxRequestsPerMinute: cfg.RateLimit.MaxRequestsPerMinute,
			Logger:               logger.GetLogger(),
		})
		api.Use(limiter.Middleware())
	}

	api.Use(validation.Middleware(validation.Config{
		MaxQueryLength: cfg.Query.MaxQueryLength,
		Logger:         logger.GetLogger(),
	}))

	RegisterRoutes(app, api, h)

	return app, limiter
}

func RegisterRoutes(app *fiber.App, api fiber.Router, h Handlers) {
	api.Post("/query", h.Query.HandleQuery)
	api.Get("/query/history", h.Query.GetQueryHistory)

	api.Get("/semantic-mappings", h.Glossary.ListMappings)
	api.Post("/semantic-mappings", h.Glossary.CreateMapping)
	api.Get("/semantic-mappings/:id", h.Glossary.GetMapping)

	api.Get("/dashboard/overview", h.Dashboard.Overview)

	api.Get("/health", h.Health.Health)
	api.Get("/ready", h.Health.Ready)

	app.Get("/metrics", metrics.MetricsHandler())

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/query", websocket.New(h.WebSocket.HandleConnection))
}

func joinOrigins(origins []string) string {
	if len(origins) == 0 {
		return "*"
	}
	return strings.Join(origins, ",")
}
