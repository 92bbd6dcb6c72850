// Package main provides the FlowMate API server implementation.
package main

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/flowmate/flowmate/pkg/analytics"
	"github.com/flowmate/flowmate/pkg/eventbus"
	"github.com/flowmate/flowmate/pkg/persistence"
	"github.com/flowmate/flowmate/pkg/registry"
	"github.com/flowmate/flowmate/pkg/web"
	"github.com/flowmate/flowmate/pkg/workflow"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	runTimeout  time.Duration
}

func NewAPI(
	logger *slog.Logger,
	p persistence.Persistence,
	reg *registry.Registry,
	eventBus eventbus.EventBus,
	runTimeout time.Duration,
) *API {
	return &API{
		logger:      logger,
		persistence: p,
		registry:    reg,
		eventBus:    eventBus,
		runTimeout:  runTimeout,
	}
}

func (a *API) App() *fiber.App {
	repository := workflow.NewRepository(a.persistence).WithEventPublisher(a.eventBus)
	executor := workflow.NewExecutor(a.logger, a.persistence, a.registry, a.eventBus, a.runTimeout)
	aggregator := analytics.NewAggregator(a.persistence)

	handlers := web.NewAPIHandlers(repository, executor, aggregator, a.registry, a.persistence)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("FlowMate API")
	})

	handlers.RegisterRoutes(app)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
