package http

import (
	"repe/internal/server/core"

	"github.com/gofiber/fiber/v2"
)

// GetPreferences handles GET /api/preferences?userId
func (h *HTTPHandler) GetPreferences(c *fiber.Ctx) error {
	id := c.Query("userId")
	if id == "" {
		id = userID(c)
	}

	settings, err := h.svc.GetPreferences(c.UserContext(), id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, settings)
}

// SavePreferences handles PUT /api/preferences
func (h *HTTPHandler) SavePreferences(c *fiber.Ctx) error {
	req, err := body[core.PreferencesRequest](c)
	if err != nil {
		return err
	}

	settings, err := h.svc.SavePreferences(c.UserContext(), *req, userID(c))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, settings)
}
