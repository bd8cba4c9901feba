package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/studiora/studiora-api/internal/config"
	"github.com/studiora/studiora-api/internal/handler"
	"github.com/studiora/studiora-api/internal/middleware"
	"github.com/studiora/studiora-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	CourseHandler *handler.CourseHandler
	ModuleHandler *handler.ModuleHandler
	QuizHandler   *handler.QuizHandler
	JWTMiddleware fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	api.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// AI generation endpoints get a tighter per-user budget.
	generationLimit := middleware.RateLimit("generation", cfg.GenerationRateLimit, time.Minute)

	if deps.CourseHandler != nil {
		courses := api.Group("/courses", jwtMiddleware)
		deps.CourseHandler.Register(courses)

		if deps.ModuleHandler != nil {
			courses.Post("/:courseID/modules/generate", generationLimit)
			deps.ModuleHandler.RegisterCourseRoutes(courses)
		}
		if deps.QuizHandler != nil {
			deps.QuizHandler.RegisterCourseRoutes(courses)
		}
	}

	if deps.ModuleHandler != nil {
		modules := api.Group("/modules", jwtMiddleware)
		deps.ModuleHandler.Register(modules)

		if deps.QuizHandler != nil {
			modules.Post("/:moduleID/quizzes/generate", generationLimit)
			modules.Post("/:moduleID/topics/:topicID/quiz", generationLimit)
			deps.QuizHandler.RegisterModuleRoutes(modules)
		}
	}

	if deps.QuizHandler != nil {
		quizzes := api.Group("/quizzes", jwtMiddleware)
		deps.QuizHandler.Register(quizzes)
	}
}
