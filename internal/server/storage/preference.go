package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const settingsColumns = `id, user_id, units, preferences_json, created_at, updated_at`

// GetUserSettings returns the settings row for a user; an empty userID selects the global row
func (s *Store) GetUserSettings(ctx context.Context, userID string) (*UserSettingsRecord, error) {
	var r UserSettingsRecord
	err := s.queryRow(ctx, s.db,
		"SELECT "+settingsColumns+" FROM user_settings WHERE user_id = ?", userID,
	).Scan(&r.ID, &r.UserID, &r.Units, &r.PreferencesJSON, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user settings: %w", err)
	}
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return &r, nil
}

// SaveUserSettings updates the row for r.UserID or creates it. On return r holds the stored ID and creation time.
func (s *Store) SaveUserSettings(ctx context.Context, r *UserSettingsRecord) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var id string
		createdAt := r.CreatedAt
		err := s.queryRow(ctx, tx,
			"SELECT id, created_at FROM user_settings WHERE user_id = ?", r.UserID,
		).Scan(&id, &createdAt)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			_, err = s.exec(ctx, tx,
				`INSERT INTO user_settings (`+settingsColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
				r.ID, r.UserID, r.Units, r.PreferencesJSON, dbTime(r.CreatedAt), dbTime(r.UpdatedAt),
			)
			if err != nil {
				return fmt.Errorf("insert user settings: %w", err)
			}
			return nil
		case err != nil:
			return fmt.Errorf("lookup user settings: %w", err)
		}

		_, err = s.exec(ctx, tx,
			`UPDATE user_settings SET units = ?, preferences_json = ?, updated_at = ? WHERE id = ?`,
			r.Units, r.PreferencesJSON, dbTime(r.UpdatedAt), id,
		)
		if err != nil {
			return fmt.Errorf("update user settings: %w", err)
		}
		r.ID = id
		r.CreatedAt = createdAt.UTC()
		return nil
	})
}
