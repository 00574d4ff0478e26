package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/dojo-go-api/internal/config"
	"github.com/noah-isme/dojo-go-api/internal/handler"
	"github.com/noah-isme/dojo-go-api/internal/middleware"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	TaskHandler         *handler.TaskHandler
	SubmissionHandler   *handler.SubmissionHandler
	SessionHandler      *handler.SessionHandler
	EconomyHandler      *handler.EconomyHandler
	ReviewHandler       *handler.ReviewHandler
	LeaderboardHandler  *handler.LeaderboardHandler
	NotificationHandler *handler.NotificationHandler
	JWTMiddleware       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	authed := app.Group("/api/v1", jwtMiddleware)
	staff := authed.Group("/staff", middleware.RequireRole("teacher", "admin"))

	if deps.TaskHandler != nil {
		taskGroup := authed.Group("/tasks")
		staffTasks := staff.Group("/tasks")
		deps.TaskHandler.Register(taskGroup, staffTasks)
	}

	if deps.SessionHandler != nil {
		deps.SessionHandler.Register(authed)
	}

	if deps.SubmissionHandler != nil {
		// Submissions spawn interpreter/toolchain processes, keep the
		// per-user rate modest.
		submissionGroup := authed.Group("/submissions", middleware.RateLimit("submissions", 10, time.Minute))
		deps.SubmissionHandler.Register(submissionGroup)
	}

	if deps.EconomyHandler != nil {
		economyGroup := authed.Group("/economy")
		deps.EconomyHandler.Register(economyGroup)
	}

	if deps.LeaderboardHandler != nil {
		deps.LeaderboardHandler.Register(authed)
	}

	if deps.ReviewHandler != nil {
		deps.ReviewHandler.Register(staff)
	}

	if deps.NotificationHandler != nil {
		notificationGroup := authed.Group("/notifications")
		deps.NotificationHandler.Register(notificationGroup)
	}
}
