package db

import "context"

const insertClassificationSQL = `
    INSERT INTO classifications (ts, pm25, pm10, co2, voc, prediction)
    VALUES ($1, $2, $3, $4, $5, $6)
    RETURNING id
`

// InsertClassification records the predicted category for one reading.
func (s *Store) InsertClassification(ctx context.Context, c Classification) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, insertClassificationSQL,
		c.Timestamp, c.PM25, c.PM10, c.CO2, c.VOC, c.Category,
	).Scan(&id)
	return id, err
}

const recentClassificationsSQL = `
    SELECT id, ts, pm25, pm10, co2, voc, prediction
    FROM classifications
    ORDER BY ts DESC
    LIMIT $1
`

// RecentClassifications returns the newest classification rows.
func (s *Store) RecentClassifications(ctx context.Context, limit int) ([]Classification, error) {
	rows, err := s.pool.Query(ctx, recentClassificationsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Classification, 0)
	for rows.Next() {
		var c Classification
		if err := rows.Scan(&c.ID, &c.Timestamp, &c.PM25, &c.PM10, &c.CO2, &c.VOC, &c.Category); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
