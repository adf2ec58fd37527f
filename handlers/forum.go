// handlers/forum.go
package handlers

import (
	"degentalk/middleware"
	"degentalk/utils"

	"github.com/gofiber/fiber/v2"
)

type CreateThreadRequest struct {
	Title string `json:"title"`
	Path  string `json:"path"`
}

type CreatePostRequest struct {
	ThreadID uint   `json:"thread_id"`
	Body     string `json:"body"`
}

// CreateThread
// POST /api/threads
func (h *Handler) CreateThread(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return RespondError(c, h.log, err)
	}
	var req CreateThreadRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	thread, awarded, err := h.engine.Forum.CreateThread(c.UserContext(), userID, req.Title, req.Path)
	if !triggerOnly(h.log, err) {
		return RespondError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusCreated, fiber.Map{"thread": thread, "awarded": awarded})
}

// CreatePost
// POST /api/posts
func (h *Handler) CreatePost(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return RespondError(c, h.log, err)
	}
	var req CreatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	post, awarded, err := h.engine.Forum.CreatePost(c.UserContext(), userID, req.ThreadID, req.Body)
	if !triggerOnly(h.log, err) {
		return RespondError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusCreated, fiber.Map{"post": post, "awarded": awarded})
}

// AddReaction
// POST /api/posts/:id/reactions/:type
func (h *Handler) AddReaction(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return RespondError(c, h.log, err)
	}
	postID, err := utils.ParamUint(c, "id")
	if err != nil {
		return RespondError(c, h.log, err)
	}

	res, err := h.engine.Forum.AddReaction(c.UserContext(), postID, userID, c.Params("type"))
	if !triggerOnly(h.log, err) {
		return RespondError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"reaction": res})
}

// RemoveReaction
// DELETE /api/posts/:id/reactions/:type
func (h *Handler) RemoveReaction(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return RespondError(c, h.log, err)
	}
	postID, err := utils.ParamUint(c, "id")
	if err != nil {
		return RespondError(c, h.log, err)
	}

	res, err := h.engine.Forum.RemoveReaction(c.UserContext(), postID, userID, c.Params("type"))
	if err != nil {
		return RespondError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"reaction": res})
}
