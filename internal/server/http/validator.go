package http

import (
	"encoding/json"

	"repe/internal/server/core"

	"github.com/gofiber/fiber/v2"
)

// validateBody decodes the JSON body into a fresh T, validates it, and stores it for the handler
func validateBody[T any]() fiber.Handler {
	return func(c *fiber.Ctx) error {
		req := new(T)

		raw := c.Body()
		if len(raw) == 0 {
			return core.Validation("request body is required")
		}
		if err := json.Unmarshal(raw, req); err != nil {
			return &core.AppError{
				Code:    core.ErrValidation,
				Message: "invalid request body",
				Details: err.Error(),
			}
		}

		if err := core.ValidateStruct(req); err != nil {
			return err
		}

		// Store validated body for handler use
		c.Locals("validatedBody", req)
		return c.Next()
	}
}

// body returns the request stored by validateBody
func body[T any](c *fiber.Ctx) (*T, error) {
	req, ok := c.Locals("validatedBody").(*T)
	if !ok {
		return nil, core.Internal("request body not validated", nil)
	}
	return req, nil
}
