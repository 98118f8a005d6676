package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"repe/internal/server/core"
	"repe/internal/server/storage"

	"github.com/google/uuid"
	"github.com/lixenwraith/auth"
)

const (
	DefaultExerciseLimit = 50
	MaxExerciseLimit     = 200
	DefaultHistoryLimit  = 20
	MaxHistoryLimit      = 100
	DefaultSetLimit      = 100
	MaxSetLimit          = 500
	DefaultWorkoutLimit  = 20
	MaxWorkoutLimit      = 100
	TokenTTL             = 30 * 24 * time.Hour
	HealthCheckInterval  = 30 * time.Second
)

// Service implements the workout repositories on top of storage
type Service struct {
	store     *storage.Store
	jwtSecret []byte
	now       func() time.Time
}

// New creates a service over an open store. A nil jwtSecret disables token validation.
func New(store *storage.Store, jwtSecret []byte) *Service {
	return &Service{
		store:     store,
		jwtSecret: jwtSecret,
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// GetStorageHealth returns the storage component status
func (s *Service) GetStorageHealth() string {
	if s.store == nil {
		return "disabled"
	}
	if s.store.IsHealthy() {
		return "ok"
	}
	return "degraded"
}

// RunHealthCheck pings storage periodically so GetStorageHealth tracks reality
func (s *Service) RunHealthCheck(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			_ = s.store.Ping(pingCtx)
			cancel()
		}
	}
}

// GenerateToken issues a bearer token whose subject is userID
func (s *Service) GenerateToken(userID string, ttl time.Duration) (string, error) {
	if len(s.jwtSecret) == 0 {
		return "", fmt.Errorf("jwt secret not configured")
	}
	return auth.GenerateHS256Token(s.jwtSecret, userID, map[string]any{"app": "repe"}, ttl)
}

// ValidateToken verifies a bearer token and returns its subject with claims
func (s *Service) ValidateToken(token string) (string, map[string]any, error) {
	if len(s.jwtSecret) == 0 {
		return "", nil, fmt.Errorf("jwt secret not configured")
	}
	return auth.ValidateHS256Token(s.jwtSecret, token)
}

// Shutdown releases the storage handle
func (s *Service) Shutdown() error {
	var errs []error
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	return errors.Join(errs...)
}

// translate maps storage errors onto the AppError taxonomy
func translate(err error, what, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return core.NotFound("%s %s not found", what, id)
	case errors.Is(err, storage.ErrConflict):
		return core.Conflict("%s already exists", what)
	case errors.Is(err, storage.ErrUnknownExercise):
		return core.Validation("%s", err.Error())
	}
	var appErr *core.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return core.Internal(fmt.Sprintf("failed to access %s", what), err)
}

// clampLimit bounds limit to [1, max]. Zero means the caller gave no limit
// and selects def.
func clampLimit(limit, def, max int) int {
	switch {
	case limit == 0:
		return def
	case limit < 1:
		return 1
	case limit > max:
		return max
	}
	return limit
}

func clampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

// parseTimestamp accepts RFC3339 with or without fractional seconds
func parseTimestamp(field, raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, core.Validation("%s must be an RFC3339 timestamp", field)
	}
	return t.UTC().Truncate(time.Microsecond), nil
}

// timestampOr parses raw, falling back to def when raw is empty
func timestampOr(field, raw string, def time.Time) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	return parseTimestamp(field, raw)
}

func validUUID(field, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return core.Validation("%s must be a UUID", field)
	}
	return nil
}
