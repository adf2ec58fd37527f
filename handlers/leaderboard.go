// handlers/leaderboard.go
package handlers

import (
	"degentalk/utils"

	"github.com/gofiber/fiber/v2"
)

// GetLeaderboard ranks users on a progression counter.
// GET /api/leaderboard?category=xp&limit=50
func (h *Handler) GetLeaderboard(c *fiber.Ctx) error {
	category := c.Query("category", "xp")
	limit := utils.QueryInt(c, "limit", 50)

	entries, err := h.engine.Leaderboard.ProgressionLeaderboard(c.UserContext(), category, limit)
	if err != nil {
		return RespondError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{
		"category": category,
		"users":    entries,
	})
}

// GetAchievementLeaderboard ranks users by achievements earned.
// GET /api/leaderboard/achievements?limit=50
func (h *Handler) GetAchievementLeaderboard(c *fiber.Ctx) error {
	entries, err := h.engine.Leaderboard.AchievementLeaderboard(c.UserContext(), utils.QueryInt(c, "limit", 50))
	if err != nil {
		return RespondError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"users": entries})
}
