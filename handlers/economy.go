// handlers/economy.go
package handlers

import (
	"degentalk/middleware"
	"degentalk/utils"

	"github.com/gofiber/fiber/v2"
)

type TipRequest struct {
	ToUserID uint  `json:"to_user_id"`
	Amount   int64 `json:"amount"`
}

type PurchaseRequest struct {
	ItemKey string `json:"item_key"`
}

// Tip
// POST /api/tips
func (h *Handler) Tip(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return RespondError(c, h.log, err)
	}
	var req TipRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	tip, awarded, err := h.engine.Economy.Tip(c.UserContext(), userID, req.ToUserID, req.Amount)
	if !triggerOnly(h.log, err) {
		return RespondError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusCreated, fiber.Map{"tip": tip, "awarded": awarded})
}

// Purchase debits the catalog price of a shop item.
// POST /api/shop/purchase
func (h *Handler) Purchase(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return RespondError(c, h.log, err)
	}
	var req PurchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	price, ok := h.prices[req.ItemKey]
	if !ok {
		return utils.JSONError(c, fiber.StatusNotFound, "Unknown shop item")
	}

	record, awarded, err := h.engine.Economy.Purchase(c.UserContext(), userID, req.ItemKey, price)
	if !triggerOnly(h.log, err) {
		return RespondError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusCreated, fiber.Map{"transaction": record, "awarded": awarded})
}
