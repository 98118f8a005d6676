package http

import (
	"repe/internal/server/core"

	"github.com/gofiber/fiber/v2"
)

// AddSet handles POST /api/exercises/:exerciseId/sets, where exerciseId names a workout exercise
func (h *HTTPHandler) AddSet(c *fiber.Ctx) error {
	req, err := body[core.SetRequest](c)
	if err != nil {
		return err
	}

	set, err := h.svc.AddSet(c.UserContext(), c.Params("exerciseId"), *req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, set)
}

// UpdateSet handles PUT /api/exercises/:exerciseId/sets/:setId
func (h *HTTPHandler) UpdateSet(c *fiber.Ctx) error {
	req, err := body[core.UpdateSetRequest](c)
	if err != nil {
		return err
	}

	set, err := h.svc.UpdateSet(c.UserContext(), c.Params("exerciseId"), c.Params("setId"), *req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, set)
}

// DeleteSet handles DELETE /api/exercises/:exerciseId/sets/:setId
func (h *HTTPHandler) DeleteSet(c *fiber.Ctx) error {
	if err := h.svc.DeleteSet(c.UserContext(), c.Params("exerciseId"), c.Params("setId")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
