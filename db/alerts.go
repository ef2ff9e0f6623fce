package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

const recentMatchingAnySQL = `
    SELECT id, user_id, ts, type, value, threshold, acknowledged
    FROM alerts
    WHERE user_id = $1 AND type = $2
    ORDER BY ts DESC
    LIMIT 1
`

const recentMatchingValueSQL = `
    SELECT id, user_id, ts, type, value, threshold, acknowledged
    FROM alerts
    WHERE user_id = $1 AND type = $2 AND value = $3
    ORDER BY ts DESC
    LIMIT 1
`

// RecentMatching returns the most recent alert for (user, pollutant), or nil
// when none exists. When exact is true the lookup also matches the observed
// value, reproducing the legacy dedup behavior.
func (s *Store) RecentMatching(ctx context.Context, userID int64, pollutant string, value float64, exact bool) (*Alert, error) {
	var row pgx.Row
	if exact {
		row = s.pool.QueryRow(ctx, recentMatchingValueSQL, userID, pollutant, value)
	} else {
		row = s.pool.QueryRow(ctx, recentMatchingAnySQL, userID, pollutant)
	}

	var a Alert
	err := row.Scan(&a.ID, &a.UserID, &a.Timestamp, &a.Type, &a.Value, &a.Threshold, &a.Acknowledged)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

const insertAlertSQL = `
    INSERT INTO alerts (user_id, ts, type, value, threshold, acknowledged)
    VALUES ($1, $2, $3, $4, $5, FALSE)
    RETURNING id
`

// AppendAlerts inserts all alerts for one evaluation pass in a single
// transaction. Either every row commits or none do.
func (s *Store) AppendAlerts(ctx context.Context, alerts []Alert) ([]Alert, error) {
	if len(alerts) == 0 {
		return alerts, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	for i := range alerts {
		a := &alerts[i]
		if err := tx.QueryRow(ctx, insertAlertSQL,
			a.UserID, a.Timestamp, a.Type, a.Value, a.Threshold,
		).Scan(&a.ID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return alerts, nil
}

const unacknowledgedSQL = `
    SELECT id, user_id, ts, type, value, threshold, acknowledged
    FROM alerts
    WHERE user_id = $1 AND acknowledged = FALSE
    ORDER BY ts DESC
`

// UnacknowledgedAlerts returns the user's open alerts newest-first.
func (s *Store) UnacknowledgedAlerts(ctx context.Context, userID int64) ([]Alert, error) {
	rows, err := s.pool.Query(ctx, unacknowledgedSQL, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	alerts := make([]Alert, 0)
	for rows.Next() {
		var a Alert
		if err := rows.Scan(&a.ID, &a.UserID, &a.Timestamp, &a.Type, &a.Value, &a.Threshold, &a.Acknowledged); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

const alertByIDSQL = `
    SELECT id, user_id, ts, type, value, threshold, acknowledged
    FROM alerts
    WHERE id = $1 AND user_id = $2
`

const acknowledgeSQL = `
    UPDATE alerts
    SET acknowledged = TRUE
    WHERE id = $1 AND user_id = $2 AND acknowledged = FALSE
`

// AcknowledgeAlert sets the acknowledged flag on one alert. Returns
// ErrNotFound when the alert does not exist or belongs to another user, and
// ErrAlreadyAcknowledged when the flag was already set.
func (s *Store) AcknowledgeAlert(ctx context.Context, userID, alertID int64) (*Alert, error) {
	var a Alert
	err := s.pool.QueryRow(ctx, alertByIDSQL, alertID, userID).Scan(
		&a.ID, &a.UserID, &a.Timestamp, &a.Type, &a.Value, &a.Threshold, &a.Acknowledged,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if a.Acknowledged {
		return nil, ErrAlreadyAcknowledged
	}

	if _, err := s.pool.Exec(ctx, acknowledgeSQL, alertID, userID); err != nil {
		return nil, err
	}
	a.Acknowledged = true
	return &a, nil
}

const acknowledgeAllSQL = `
    UPDATE alerts
    SET acknowledged = TRUE
    WHERE user_id = $1 AND acknowledged = FALSE
    RETURNING id
`

// AcknowledgeAll acknowledges every open alert owned by the user and returns
// the affected ids. Nothing outstanding is a no-op, not an error.
func (s *Store) AcknowledgeAll(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := s.pool.Query(ctx, acknowledgeAllSQL, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
