// handlers/response.go
package handlers

import (
	"errors"

	"degentalk/logger"
	"degentalk/services"
	"degentalk/utils"

	"github.com/gofiber/fiber/v2"
)

// RespondError maps engine errors onto HTTP statuses in one place.
func RespondError(c *fiber.Ctx, log *logger.Logger, err error) error {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return utils.JSONError(c, fe.Code, fe.Message)
	case errors.Is(err, services.ErrNotFound):
		return utils.JSONError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrInvalidInput):
		return utils.JSONError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrInsufficientFunds):
		return utils.JSONError(c, fiber.StatusPaymentRequired, err.Error())
	case services.IsRetryable(err):
		log.Warn("retryable store error", "path", c.Path(), "error", err)
		return utils.JSONError(c, fiber.StatusServiceUnavailable, "Temporarily unavailable, please retry")
	default:
		log.Error("request failed", "path", c.Path(), "error", err)
		return utils.JSONError(c, fiber.StatusInternalServerError, "Internal server error")
	}
}

// triggerOnly reports whether err only concerns post-commit achievement
// evaluation. The primary write succeeded, so the request still succeeds.
func triggerOnly(log *logger.Logger, err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, services.ErrTriggerFailed) {
		log.Warn("achievement evaluation failed after commit", "error", err)
		return true
	}
	return false
}

// Handler serves the user-facing API.
type Handler struct {
	engine *services.Engine
	log    *logger.Logger
	prices map[string]int64
}

// New builds the handler set. prices is the shop catalog, item key to DGT.
func New(engine *services.Engine, log *logger.Logger, prices map[string]int64) *Handler {
	return &Handler{engine: engine, log: log.With("component", "handlers"), prices: prices}
}
