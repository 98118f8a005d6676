package http

import (
	"repe/internal/server/core"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ListWorkouts handles GET /api/workouts?limit&offset
func (h *HTTPHandler) ListWorkouts(c *fiber.Ctx) error {
	limit, offset, err := pageParams(c)
	if err != nil {
		return err
	}

	workouts, page, err := h.svc.ListWorkouts(c.UserContext(), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(core.Response{Success: true, Data: workouts, Pagination: &page})
}

// CreateWorkout handles POST /api/workouts
func (h *HTTPHandler) CreateWorkout(c *fiber.Ctx) error {
	req, err := body[core.UpsertWorkoutRequest](c)
	if err != nil {
		return err
	}

	workout, err := h.svc.UpsertWorkout(c.UserContext(), *req, userID(c))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, workout)
}

// GetWorkout handles GET /api/workouts/:id
func (h *HTTPHandler) GetWorkout(c *fiber.Ctx) error {
	workout, err := h.svc.GetWorkout(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, workout)
}

// ReplaceWorkout handles PUT and PATCH /api/workouts/:id. A body id must match the path.
func (h *HTTPHandler) ReplaceWorkout(c *fiber.Ctx) error {
	req, err := body[core.UpsertWorkoutRequest](c)
	if err != nil {
		return err
	}

	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return core.NotFound("workout %s not found", id)
	}
	if req.ID != "" && req.ID != id {
		return core.Validation("body id %s does not match path id %s", req.ID, id)
	}
	req.ID = id

	workout, err := h.svc.UpsertWorkout(c.UserContext(), *req, userID(c))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, workout)
}

// DeleteWorkout handles DELETE /api/workouts/:id
func (h *HTTPHandler) DeleteWorkout(c *fiber.Ctx) error {
	if err := h.svc.DeleteWorkout(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddWorkoutExercise handles POST /api/workouts/:id/exercises
func (h *HTTPHandler) AddWorkoutExercise(c *fiber.Ctx) error {
	req, err := body[core.AddWorkoutExerciseRequest](c)
	if err != nil {
		return err
	}

	workout, err := h.svc.AddWorkoutExercise(c.UserContext(), c.Params("id"), *req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, workout)
}

// ListWorkoutSets handles GET /api/workouts/:id/sets?limit&offset
func (h *HTTPHandler) ListWorkoutSets(c *fiber.Ctx) error {
	limit, offset, err := pageParams(c)
	if err != nil {
		return err
	}

	sets, err := h.svc.ListSetsByWorkout(c.UserContext(), c.Params("id"), limit, offset)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, sets)
}
