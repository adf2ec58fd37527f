// handlers/admin/achievements.go
package admin

import (
	"degentalk/config"
	"degentalk/handlers"
	"degentalk/logger"
	"degentalk/services"
	"degentalk/utils"

	"github.com/gofiber/fiber/v2"
)

// Handler serves the admin surface of the rewards engine.
type Handler struct {
	engine *services.Engine
	seeds  *config.Seeds
	log    *logger.Logger
}

func New(engine *services.Engine, seeds *config.Seeds, log *logger.Logger) *Handler {
	return &Handler{engine: engine, seeds: seeds, log: log.With("component", "admin")}
}

type AwardRequest struct {
	UserID uint `json:"user_id"`
}

// GetAchievements returns all achievements, inactive included
// GET /api/admin/achievements
func (h *Handler) GetAchievements(c *fiber.Ctx) error {
	defs, err := h.engine.Achievements.ListAchievements(c.UserContext(), true)
	if err != nil {
		return handlers.RespondError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"achievements": defs})
}

// CreateAchievement creates a new achievement
// POST /api/admin/achievements
func (h *Handler) CreateAchievement(c *fiber.Ctx) error {
	var in services.AchievementInput
	if err := c.BodyParser(&in); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	def, err := h.engine.Achievements.CreateAchievement(c.UserContext(), in)
	if err != nil {
		return handlers.RespondError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusCreated, fiber.Map{"achievement": def})
}

// UpdateAchievement replaces an achievement's definition
// PUT /api/admin/achievements/:id
func (h *Handler) UpdateAchievement(c *fiber.Ctx) error {
	id, err := utils.ParamUint(c, "id")
	if err != nil {
		return handlers.RespondError(c, h.log, err)
	}
	var in services.AchievementInput
	if err := c.BodyParser(&in); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	def, err := h.engine.Achievements.UpdateAchievement(c.UserContext(), id, in)
	if err != nil {
		return handlers.RespondError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"achievement": def})
}

// DeleteAchievement deletes an unearned achievement or deactivates an earned one
// DELETE /api/admin/achievements/:id
func (h *Handler) DeleteAchievement(c *fiber.Ctx) error {
	id, err := utils.ParamUint(c, "id")
	if err != nil {
		return handlers.RespondError(c, h.log, err)
	}

	deleted, err := h.engine.Achievements.DeleteAchievement(c.UserContext(), id)
	if err != nil {
		return handlers.RespondError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"deleted": deleted, "deactivated": !deleted})
}

// AwardAchievement grants an achievement manually
// POST /api/admin/achievements/:id/award
func (h *Handler) AwardAchievement(c *fiber.Ctx) error {
	id, err := utils.ParamUint(c, "id")
	if err != nil {
		return handlers.RespondError(c, h.log, err)
	}
	var req AwardRequest
	if err := c.BodyParser(&req); err != nil || req.UserID == 0 {
		return utils.JSONError(c, fiber.StatusBadRequest, "user_id is required")
	}

	awarded, err := h.engine.Achievements.AwardAchievement(c.UserContext(), req.UserID, id)
	if err != nil {
		return handlers.RespondError(c, h.log, err)
	}
	h.log.Info("manual achievement award", "achievement_id", id, "user_id", req.UserID, "awarded", awarded)
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"awarded": awarded})
}

// SeedDefaults inserts the starter achievements, action values and rules
// POST /api/admin/seed
func (h *Handler) SeedDefaults(c *fiber.Ctx) error {
	summary, err := h.engine.SeedDefaults(c.UserContext(), h.seeds)
	if err != nil {
		return handlers.RespondError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"created": summary})
}
