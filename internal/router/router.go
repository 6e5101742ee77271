package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ipes/ipes-go-api/internal/config"
	"github.com/ipes/ipes-go-api/internal/handler"
	"github.com/ipes/ipes-go-api/internal/middleware"
	"github.com/ipes/ipes-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	EligibilityHandler      *handler.EligibilityHandler
	EnrollmentHandler       *handler.EnrollmentHandler
	ExamRegistrationHandler *handler.ExamRegistrationHandler
	StandingHandler         *handler.StandingHandler
	RegularityImportHandler *handler.RegularityImportHandler
	EquivalenceHandler      *handler.EquivalenceHandler
	ActivityHandler         *handler.ActivityHandler
	JWTMiddleware           fiber.Handler
	RateLimiter             fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}
	rateLimiter := deps.RateLimiter
	if rateLimiter == nil {
		rateLimiter = func(c *fiber.Ctx) error { return c.Next() }
	}
	staffOnly := middleware.RequireStaff()

	// Per-student reads and commits; services check the actor owns the record.
	students := api.Group("/students/:studentId", jwtMiddleware, rateLimiter)
	if deps.EligibilityHandler != nil {
		deps.EligibilityHandler.Register(students)
	}
	if deps.EnrollmentHandler != nil {
		deps.EnrollmentHandler.Register(students)
	}
	if deps.ExamRegistrationHandler != nil {
		deps.ExamRegistrationHandler.RegisterStudentRoutes(students)
	}
	if deps.StandingHandler != nil {
		deps.StandingHandler.Register(students)
	}
	if deps.EquivalenceHandler != nil {
		deps.EquivalenceHandler.Register(students, staffOnly)
	}

	// Staff back office
	if deps.ExamRegistrationHandler != nil {
		deps.ExamRegistrationHandler.RegisterStaffRoutes(api.Group("/exam-registrations", jwtMiddleware, rateLimiter, staffOnly))
	}
	if deps.RegularityImportHandler != nil {
		deps.RegularityImportHandler.Register(api.Group("/regularities", jwtMiddleware, rateLimiter, staffOnly))
	}
	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(api.Group("/activity", jwtMiddleware, rateLimiter, staffOnly))
	}
}
