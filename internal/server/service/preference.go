package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"repe/internal/server/core"
	"repe/internal/server/storage"

	"github.com/google/uuid"
)

// GetPreferences returns stored settings for userID, or defaults when none are stored
func (s *Service) GetPreferences(ctx context.Context, userID string) (*core.UserSettings, error) {
	userID = strings.TrimSpace(userID)
	record, err := s.store.GetUserSettings(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return &core.UserSettings{
			UserID:      userID,
			Units:       core.UnitsMetric.String(),
			Preferences: core.DefaultPreferences(),
		}, nil
	}
	if err != nil {
		return nil, translate(err, "preferences", userID)
	}
	return toUserSettings(record)
}

// SavePreferences validates and stores settings for the request's user, or the caller when it names none
func (s *Service) SavePreferences(ctx context.Context, req core.PreferencesRequest, userID string) (*core.UserSettings, error) {
	if err := core.ValidateStruct(&req); err != nil {
		return nil, err
	}
	if !core.Units(req.Units).Valid() {
		return nil, core.Validation("units must be one of [metric imperial]")
	}

	prefs := core.DefaultPreferences()
	if req.Preferences != nil {
		prefs = *req.Preferences
	}
	if err := core.ValidateStruct(&prefs); err != nil {
		return nil, err
	}

	data, err := json.Marshal(prefs)
	if err != nil {
		return nil, core.Internal("failed to encode preferences", err)
	}

	if req.UserID = strings.TrimSpace(req.UserID); req.UserID == "" {
		req.UserID = userID
	}

	now := s.now()
	record := &storage.UserSettingsRecord{
		ID:              uuid.New().String(),
		UserID:          req.UserID,
		Units:           req.Units,
		PreferencesJSON: string(data),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.SaveUserSettings(ctx, record); err != nil {
		return nil, translate(err, "preferences", req.UserID)
	}
	return toUserSettings(record)
}

func toUserSettings(r *storage.UserSettingsRecord) (*core.UserSettings, error) {
	prefs := core.DefaultPreferences()
	if strings.TrimSpace(r.PreferencesJSON) != "" {
		if err := json.Unmarshal([]byte(r.PreferencesJSON), &prefs); err != nil {
			return nil, core.Internal("stored preferences are corrupt", err)
		}
	}

	createdAt, updatedAt := r.CreatedAt, r.UpdatedAt
	return &core.UserSettings{
		ID:          r.ID,
		UserID:      r.UserID,
		Units:       r.Units,
		Preferences: prefs,
		CreatedAt:   &createdAt,
		UpdatedAt:   &updatedAt,
	}, nil
}
