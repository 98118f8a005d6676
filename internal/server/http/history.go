package http

import (
	"repe/internal/server/core"
	"repe/internal/server/service"

	"github.com/gofiber/fiber/v2"
)

// ListHistory handles GET /api/history?limit&cursor&from&to
func (h *HTTPHandler) ListHistory(c *fiber.Ctx) error {
	limit, err := limitParam(c)
	if err != nil {
		return err
	}

	page, err := h.svc.ListHistory(c.UserContext(), service.HistoryQuery{
		Cursor: c.Query("cursor"),
		Limit:  limit,
		From:   c.Query("from"),
		To:     c.Query("to"),
	})
	if err != nil {
		return err
	}

	hasMore := page.HasMore
	return c.JSON(core.Response{
		Success: true,
		Data:    page.Data,
		Cursor:  page.Cursor,
		HasMore: &hasMore,
	})
}

// CreateHistory handles POST /api/history
func (h *HTTPHandler) CreateHistory(c *fiber.Ctx) error {
	req, err := body[core.HistoryRequest](c)
	if err != nil {
		return err
	}

	entry, err := h.svc.CreateHistory(c.UserContext(), *req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, entry)
}

// BackfillHistory handles POST /api/history/backfill
func (h *HTTPHandler) BackfillHistory(c *fiber.Ctx) error {
	req, err := body[core.BackfillRequest](c)
	if err != nil {
		return err
	}

	result, err := h.svc.BackfillHistory(c.UserContext(), req.Entries)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, result)
}

// HistoryStats handles GET /api/history/stats?from&to
func (h *HTTPHandler) HistoryStats(c *fiber.Ctx) error {
	stats, err := h.svc.HistoryStats(c.UserContext(), c.Query("from"), c.Query("to"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, stats)
}
