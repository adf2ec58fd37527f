// handlers/progression.go
package handlers

import (
	"degentalk/middleware"
	"degentalk/utils"

	"github.com/gofiber/fiber/v2"
)

type CheckAchievementsRequest struct {
	Action   string         `json:"action"`
	Metadata map[string]any `json:"metadata"`
}

// GetProgression returns the caller's level, XP, paths and unlocked emojis.
// GET /api/progression
func (h *Handler) GetProgression(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return RespondError(c, h.log, err)
	}

	summary, err := h.engine.XP.GetProgression(c.UserContext(), userID)
	if err != nil {
		return RespondError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"progression": summary})
}

// GetAchievementProgress returns progress on every active achievement, or on ?ids=1,2.
// GET /api/progression/achievements
func (h *Handler) GetAchievementProgress(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return RespondError(c, h.log, err)
	}

	progress, err := h.engine.Achievements.GetUserAchievementProgress(c.UserContext(), userID, utils.QueryUintList(c, "ids"))
	if err != nil {
		return RespondError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"achievements": progress})
}

// GetAchievementStats
// GET /api/progression/stats
func (h *Handler) GetAchievementStats(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return RespondError(c, h.log, err)
	}

	stats, err := h.engine.Achievements.GetUserAchievementStats(c.UserContext(), userID)
	if err != nil {
		return RespondError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"stats": stats})
}

// CheckAchievements re-runs evaluation for one action and returns what was newly awarded.
// POST /api/progression/check
func (h *Handler) CheckAchievements(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return RespondError(c, h.log, err)
	}

	var req CheckAchievementsRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if req.Action == "" {
		return utils.JSONError(c, fiber.StatusBadRequest, "action is required")
	}

	awarded, err := h.engine.Achievements.CheckAndAwardAchievements(c.UserContext(), userID, req.Action, req.Metadata)
	if err != nil {
		return RespondError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"awarded": awarded})
}
