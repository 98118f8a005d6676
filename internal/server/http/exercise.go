package http

import (
	"strconv"

	"repe/internal/server/core"
	"repe/internal/server/service"

	"github.com/gofiber/fiber/v2"
)

// ListExercises handles GET /api/exercises?search&category&limit&offset
func (h *HTTPHandler) ListExercises(c *fiber.Ctx) error {
	limit, offset, err := pageParams(c)
	if err != nil {
		return err
	}

	exercises, page, err := h.svc.ListExercises(c.UserContext(), service.ExerciseQuery{
		Search:   c.Query("search"),
		Category: c.Query("category"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return err
	}

	return c.JSON(core.Response{Success: true, Data: exercises, Pagination: &page})
}

// CreateExercise handles POST /api/exercises
func (h *HTTPHandler) CreateExercise(c *fiber.Ctx) error {
	req, err := body[core.CreateExerciseRequest](c)
	if err != nil {
		return err
	}

	exercise, err := h.svc.CreateExercise(c.UserContext(), *req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, exercise)
}

// GetExercise handles GET /api/exercises/:id
func (h *HTTPHandler) GetExercise(c *fiber.Ctx) error {
	exercise, err := h.svc.GetExercise(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, exercise)
}

// queryInt parses an optional integer query parameter
func queryInt(c *fiber.Ctx, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, core.Validation("%s must be an integer", key)
	}
	return n, nil
}

// limitParam reads ?limit. An absent limit yields zero so the service picks
// its default; an explicit value below one becomes one.
func limitParam(c *fiber.Ctx) (int, error) {
	if c.Query("limit") == "" {
		return 0, nil
	}
	n, err := queryInt(c, "limit")
	if err != nil {
		return 0, err
	}
	return max(n, 1), nil
}

func pageParams(c *fiber.Ctx) (limit, offset int, err error) {
	if limit, err = limitParam(c); err != nil {
		return 0, 0, err
	}
	if offset, err = queryInt(c, "offset"); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}
