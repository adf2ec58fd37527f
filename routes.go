// routes.go - HTTP route table
package main

import (
	"time"

	"degentalk/handlers"
	"degentalk/handlers/admin"
	"degentalk/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type routeDeps struct {
	auth     *middleware.Auth
	api      *handlers.Handler
	admin    *admin.Handler
	hub      *handlers.NotificationHub
	registry *prometheus.Registry
}

func setupRoutes(app *fiber.App, d routeDeps) {
	api := app.Group("/api")

	// Progression routes
	progressionGroup := api.Group("/progression", d.auth.Required())
	progressionGroup.Get("/", d.api.GetProgression)
	progressionGroup.Get("/achievements", d.api.GetAchievementProgress)
	progressionGroup.Get("/stats", d.api.GetAchievementStats)
	progressionGroup.Post("/check", d.api.CheckAchievements)

	// Leaderboard routes
	leaderboardGroup := api.Group("/leaderboard")
	leaderboardGroup.Get("/", d.api.GetLeaderboard)
	leaderboardGroup.Get("/achievements", d.api.GetAchievementLeaderboard)

	// Forum activity
	api.Post("/threads", d.auth.Required(), d.api.CreateThread)
	api.Post("/posts", d.auth.Required(), d.api.CreatePost)
	api.Post("/posts/:id/reactions/:type", d.auth.Required(), d.api.AddReaction)
	api.Delete("/posts/:id/reactions/:type", d.auth.Required(), d.api.RemoveReaction)

	// Economy
	api.Post("/tips", d.auth.Required(), d.api.Tip)
	api.Post("/shop/purchase", d.auth.Required(), d.api.Purchase)

	api.Get("/notifications", d.auth.Required(), d.api.GetNotifications)

	// Admin routes
	adminGroup := api.Group("/admin", d.auth.Admin())
	adminGroup.Get("/achievements", d.admin.GetAchievements)
	adminGroup.Post("/achievements", d.admin.CreateAchievement)
	adminGroup.Put("/achievements/:id", d.admin.UpdateAchievement)
	adminGroup.Delete("/achievements/:id", d.admin.DeleteAchievement)
	adminGroup.Post("/achievements/:id/award", d.admin.AwardAchievement)
	adminGroup.Post("/seed", d.admin.SeedDefaults)
	adminGroup.Get("/action-values", d.admin.GetActionValues)
	adminGroup.Put("/action-values/:key", d.admin.UpsertActionValue)
	adminGroup.Post("/users/:id/reputation", d.admin.GrantReputation)
	adminGroup.Post("/users/:id/reputation/reconcile", d.admin.ReconcileReputation)
	adminGroup.Post("/users/:id/multipliers/recalculate", d.admin.RecalculateMultipliers)

	app.Get("/ws/notifications", d.hub.Upgrade(), d.auth.WebSocket(), d.hub.Stream())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{})))

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
		})
	})
}
