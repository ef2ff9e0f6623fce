package db

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
)

const settingsByUserSQL = `
    SELECT id, user_id, notifications, format, thresholds
    FROM user_settings
    WHERE user_id = $1
`

// SettingsByUser returns the user's threshold settings, or ErrNotFound when
// none exist yet.
func (s *Store) SettingsByUser(ctx context.Context, userID int64) (*UserSettings, error) {
	var set UserSettings
	var thresholdsJSON []byte
	err := s.pool.QueryRow(ctx, settingsByUserSQL, userID).Scan(
		&set.ID, &set.UserID, &set.Notifications, &set.Format, &thresholdsJSON,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(thresholdsJSON, &set.Thresholds); err != nil {
		return nil, err
	}
	return &set, nil
}

const upsertSettingsSQL = `
    INSERT INTO user_settings (user_id, notifications, format, thresholds)
    VALUES ($1, $2, $3, $4)
    ON CONFLICT (user_id) DO UPDATE
    SET notifications = EXCLUDED.notifications,
        format = EXCLUDED.format,
        thresholds = EXCLUDED.thresholds
    RETURNING id
`

// UpsertSettings replaces the user's settings wholesale. Partial updates are
// not supported; the full set is written every time.
func (s *Store) UpsertSettings(ctx context.Context, set UserSettings) (*UserSettings, error) {
	thresholdsJSON, err := json.Marshal(set.Thresholds)
	if err != nil {
		return nil, err
	}
	if err := s.pool.QueryRow(ctx, upsertSettingsSQL,
		set.UserID, set.Notifications, set.Format, thresholdsJSON,
	).Scan(&set.ID); err != nil {
		return nil, err
	}
	return &set, nil
}

const notifiableUsersSQL = `
    SELECT u.id, u.email, s.id, s.notifications, s.format, s.thresholds
    FROM users u
    JOIN user_settings s ON s.user_id = u.id
    WHERE s.notifications = TRUE
    ORDER BY u.id
`

// NotifiableUsers returns every user that has settings with notifications
// enabled. Users without a settings row are treated as alerts-disabled and
// never appear here.
func (s *Store) NotifiableUsers(ctx context.Context) ([]UserWithSettings, error) {
	rows, err := s.pool.Query(ctx, notifiableUsersSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]UserWithSettings, 0)
	for rows.Next() {
		var u UserWithSettings
		var thresholdsJSON []byte
		if err := rows.Scan(
			&u.UserID,
			&u.Email,
			&u.Settings.ID,
			&u.Settings.Notifications,
			&u.Settings.Format,
			&thresholdsJSON,
		); err != nil {
			return nil, err
		}
		u.Settings.UserID = u.UserID
		if err := json.Unmarshal(thresholdsJSON, &u.Settings.Thresholds); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
