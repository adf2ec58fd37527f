// handlers/admin/progression.go
package admin

import (
	"degentalk/handlers"
	"degentalk/services"
	"degentalk/utils"

	"github.com/gofiber/fiber/v2"
)

type GrantReputationRequest struct {
	Amount int    `json:"amount"`
	Reason string `json:"reason"`
}

// GetActionValues
// GET /api/admin/action-values
func (h *Handler) GetActionValues(c *fiber.Ctx) error {
	values, err := h.engine.ActionValues.ListActionValues(c.UserContext())
	if err != nil {
		return handlers.RespondError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"action_values": values})
}

// UpsertActionValue
// PUT /api/admin/action-values/:key
func (h *Handler) UpsertActionValue(c *fiber.Ctx) error {
	var v services.ActionValues
	if err := c.BodyParser(&v); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	v.ActionKey = c.Params("key")

	if err := h.engine.ActionValues.UpsertActionValue(c.UserContext(), v); err != nil {
		return handlers.RespondError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"action_value": v})
}

// GrantReputation appends a manual ledger entry
// POST /api/admin/users/:id/reputation
func (h *Handler) GrantReputation(c *fiber.Ctx) error {
	userID, err := utils.ParamUint(c, "id")
	if err != nil {
		return handlers.RespondError(c, h.log, err)
	}
	var req GrantReputationRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if req.Reason == "" {
		req.Reason = "admin grant"
	}

	granted, err := h.engine.Reputation.GrantReputation(c.UserContext(), userID, req.Amount, req.Reason, nil)
	if err != nil {
		return handlers.RespondError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"granted": granted})
}

// ReconcileReputation rewrites users.reputation from the ledger
// POST /api/admin/users/:id/reputation/reconcile
func (h *Handler) ReconcileReputation(c *fiber.Ctx) error {
	userID, err := utils.ParamUint(c, "id")
	if err != nil {
		return handlers.RespondError(c, h.log, err)
	}

	res, err := h.engine.Reputation.ReconcileReputation(c.UserContext(), userID)
	if err != nil {
		return handlers.RespondError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"reconcile": res})
}

// RecalculateMultipliers re-derives path multipliers, e.g. after a tier change
// POST /api/admin/users/:id/multipliers/recalculate
func (h *Handler) RecalculateMultipliers(c *fiber.Ctx) error {
	userID, err := utils.ParamUint(c, "id")
	if err != nil {
		return handlers.RespondError(c, h.log, err)
	}

	changes, err := h.engine.XP.RecalculateMultipliers(c.UserContext(), userID)
	if err != nil {
		return handlers.RespondError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"changes": changes})
}
