package http

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"repe/internal/server/core"
	"repe/internal/server/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const rateLimitRate = 20 // req/sec

// Config tunes the API app
type Config struct {
	DevMode     bool // doubles the rate limit and exposes internal error details
	RequireAuth bool // reject requests without a valid bearer token
}

// HTTPHandler handles HTTP requests and routes them to the service
type HTTPHandler struct {
	svc     *service.Service
	devMode bool
}

func NewHTTPHandler(svc *service.Service, devMode bool) *HTTPHandler {
	return &HTTPHandler{svc: svc, devMode: devMode}
}

func NewFiberApp(svc *service.Service, cfg Config) *fiber.App {
	// Create handler
	h := NewHTTPHandler(svc, cfg.DevMode)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: h.customErrorHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		BodyLimit:    1 << 20,
	})

	// Global middleware (order matters)
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Health check (no rate limit)
	app.Get("/health", h.Health)

	api := app.Group("/api")

	maxReq := rateLimitRate
	if cfg.DevMode {
		maxReq = rateLimitRate * 2
	}
	api.Use(limiter.New(limiter.Config{
		Max:        maxReq,
		Expiration: 1 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			if xff := c.Get("X-Forwarded-For"); xff != "" {
				if idx := strings.Index(xff, ","); idx != -1 {
					return strings.TrimSpace(xff[:idx])
				}
				return xff
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return &core.AppError{
				Code:    core.ErrRateLimitExceeded,
				Message: "rate limit exceeded",
				Details: fmt.Sprintf("%d requests per second allowed", maxReq),
			}
		},
	}))

	// Content-Type validation for body-carrying requests
	api.Use(contentTypeValidator)

	// Identity is optional unless configured otherwise
	if cfg.RequireAuth {
		api.Use(AuthRequired(svc.ValidateToken))
	} else {
		api.Use(OptionalAuth(svc.ValidateToken))
	}

	// Exercises
	api.Get("/exercises", h.ListExercises)
	api.Post("/exercises", validateBody[core.CreateExerciseRequest](), h.CreateExercise)
	api.Get("/exercises/:id", h.GetExercise)

	// Sets, keyed by workout exercise
	api.Post("/exercises/:exerciseId/sets", validateBody[core.SetRequest](), h.AddSet)
	api.Put("/exercises/:exerciseId/sets/:setId", validateBody[core.UpdateSetRequest](), h.UpdateSet)
	api.Delete("/exercises/:exerciseId/sets/:setId", h.DeleteSet)

	// Workouts
	api.Get("/workouts", h.ListWorkouts)
	api.Post("/workouts", validateBody[core.UpsertWorkoutRequest](), h.CreateWorkout)
	api.Get("/workouts/:id", h.GetWorkout)
	api.Put("/workouts/:id", validateBody[core.UpsertWorkoutRequest](), h.ReplaceWorkout)
	api.Patch("/workouts/:id", validateBody[core.UpsertWorkoutRequest](), h.ReplaceWorkout)
	api.Delete("/workouts/:id", h.DeleteWorkout)
	api.Post("/workouts/:id/exercises", validateBody[core.AddWorkoutExerciseRequest](), h.AddWorkoutExercise)
	api.Get("/workouts/:id/sets", h.ListWorkoutSets)

	// History
	api.Get("/history", h.ListHistory)
	api.Post("/history", validateBody[core.HistoryRequest](), h.CreateHistory)
	api.Post("/history/backfill", validateBody[core.BackfillRequest](), h.BackfillHistory)
	api.Get("/history/stats", h.HistoryStats)

	// Preferences
	api.Get("/preferences", h.GetPreferences)
	api.Put("/preferences", validateBody[core.PreferencesRequest](), h.SavePreferences)

	return app
}

// contentTypeValidator ensures POST, PUT and PATCH requests carry application/json
func contentTypeValidator(c *fiber.Ctx) error {
	method := c.Method()
	if method == fiber.MethodPost || method == fiber.MethodPut || method == fiber.MethodPatch {
		contentType := strings.ToLower(strings.TrimSpace(c.Get("Content-Type")))
		if contentType != "" && !strings.HasPrefix(contentType, fiber.MIMEApplicationJSON) {
			return &core.AppError{
				Code:    core.ErrInvalidContent,
				Message: "unsupported media type",
				Details: "Content-Type must be application/json",
			}
		}
	}
	return c.Next()
}

// statusFor maps an error code onto its HTTP status
func statusFor(code string) int {
	switch code {
	case core.ErrValidation:
		return fiber.StatusBadRequest
	case core.ErrNotFound:
		return fiber.StatusNotFound
	case core.ErrConflict:
		return fiber.StatusConflict
	case core.ErrRateLimitExceeded:
		return fiber.StatusTooManyRequests
	case core.ErrInvalidContent:
		return fiber.StatusUnsupportedMediaType
	case core.ErrUnauthorized:
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}

// customErrorHandler provides consistent error envelopes
func (h *HTTPHandler) customErrorHandler(c *fiber.Ctx, err error) error {
	var appErr *core.AppError
	var fiberErr *fiber.Error

	switch {
	case errors.As(err, &appErr):
	case errors.As(err, &fiberErr):
		// Map framework errors such as unknown routes onto the taxonomy
		appErr = &core.AppError{Code: core.ErrInternalError, Message: fiberErr.Message}
		switch fiberErr.Code {
		case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
			appErr.Code = core.ErrNotFound
		case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity, fiber.StatusRequestEntityTooLarge:
			appErr.Code = core.ErrValidation
		case fiber.StatusTooManyRequests:
			appErr.Code = core.ErrRateLimitExceeded
		case fiber.StatusUnsupportedMediaType:
			appErr.Code = core.ErrInvalidContent
		default:
			appErr.Message = "internal server error"
		}
	default:
		appErr = core.Internal("internal server error", err)
	}

	response := appErr.Response()
	if appErr.Code == core.ErrInternalError {
		log.Printf("Internal error on %s %s: %v", c.Method(), c.Path(), err)
		response.Message = "internal server error"
		if !h.devMode {
			response.Details = ""
		}
	}

	return c.Status(statusFor(appErr.Code)).JSON(core.Response{
		Success: false,
		Error:   response,
	})
}

// respond writes a success envelope
func respond(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(core.Response{Success: true, Data: data})
}

// Health check endpoint with storage status
func (h *HTTPHandler) Health(c *fiber.Ctx) error {
	storage := h.svc.GetStorageHealth()
	code, status := fiber.StatusOK, "healthy"
	if storage != "ok" {
		code, status = fiber.StatusServiceUnavailable, "degraded"
	}
	return c.Status(code).JSON(fiber.Map{
		"status":  status,
		"time":    time.Now().Unix(),
		"storage": storage,
	})
}

// userID returns the authenticated caller, or empty when anonymous
func userID(c *fiber.Ctx) string {
	id, _ := c.Locals("userID").(string)
	return id
}
