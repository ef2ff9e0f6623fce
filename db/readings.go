package db

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
)

const insertReadingSQL = `
    INSERT INTO readings (ts, temperature, humidity, pm25, pm10, co2, voc)
    VALUES ($1, $2, $3, $4, $5, $6, $7)
    RETURNING id
`

// InsertReading stores one sensor sample and returns its id.
func (s *Store) InsertReading(ctx context.Context, r Reading) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, insertReadingSQL,
		r.Timestamp, r.Temperature, r.Humidity, r.PM25, r.PM10, r.CO2, r.VOC,
	).Scan(&id)
	return id, err
}

// ReadingQuery holds filters for retrieving readings.
type ReadingQuery struct {
	Since *time.Time
	Until *time.Time
	Limit int
}

const readingsBase = `
    SELECT id, ts, temperature, humidity, pm25, pm10, co2, voc
    FROM readings
`

// FetchReadings returns readings newest-first based on the query.
func (s *Store) FetchReadings(ctx context.Context, q ReadingQuery) ([]Reading, error) {
	args := []any{}
	clause := ""
	argPos := 1
	if q.Since != nil {
		clause = " WHERE ts >= $" + strconv.Itoa(argPos)
		args = append(args, *q.Since)
		argPos++
	}
	if q.Until != nil {
		if clause == "" {
			clause = " WHERE"
		} else {
			clause += " AND"
		}
		clause += " ts <= $" + strconv.Itoa(argPos)
		args = append(args, *q.Until)
		argPos++
	}
	order := " ORDER BY ts DESC"
	limit := ""
	if q.Limit > 0 {
		limit = " LIMIT $" + strconv.Itoa(argPos)
		args = append(args, q.Limit)
	}

	sql := readingsBase + clause + order + limit

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	readings := make([]Reading, 0)
	for rows.Next() {
		var r Reading
		if err := rows.Scan(
			&r.ID,
			&r.Timestamp,
			&r.Temperature,
			&r.Humidity,
			&r.PM25,
			&r.PM10,
			&r.CO2,
			&r.VOC,
		); err != nil {
			return nil, err
		}
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

const summaryBase = `
    SELECT ts, temperature, humidity, pm25, pm10
    FROM readings
`

// FetchSummaries returns the partial projection used by the summary endpoint.
func (s *Store) FetchSummaries(ctx context.Context, q ReadingQuery) ([]ReadingSummary, error) {
	args := []any{}
	clause := ""
	if q.Since != nil && q.Until != nil {
		clause = " WHERE ts >= $1 AND ts <= $2"
		args = append(args, *q.Since, *q.Until)
	}

	rows, err := s.pool.Query(ctx, summaryBase+clause+" ORDER BY ts DESC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]ReadingSummary, 0)
	for rows.Next() {
		var r ReadingSummary
		if err := rows.Scan(&r.Timestamp, &r.Temperature, &r.Humidity, &r.PM25, &r.PM10); err != nil {
			return nil, err
		}
		summaries = append(summaries, r)
	}
	return summaries, rows.Err()
}

const latestReadingSQL = readingsBase + ` ORDER BY ts DESC LIMIT 1`

// LatestReading returns the most recent reading, or ErrNotFound when none exist.
func (s *Store) LatestReading(ctx context.Context) (*Reading, error) {
	var r Reading
	err := s.pool.QueryRow(ctx, latestReadingSQL).Scan(
		&r.ID,
		&r.Timestamp,
		&r.Temperature,
		&r.Humidity,
		&r.PM25,
		&r.PM10,
		&r.CO2,
		&r.VOC,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// statsMetrics whitelists the columns the stats endpoint may aggregate.
var statsMetrics = map[string]bool{
	"temperature": true,
	"humidity":    true,
	"pm25":        true,
	"pm10":        true,
	"co2":         true,
	"voc":         true,
}

// ValidMetric reports whether the metric name may be used with MetricStatistics.
func ValidMetric(metric string) bool {
	return statsMetrics[metric]
}

// MetricStatistics computes min/max/avg/population-stddev for one metric over a
// time range. The metric name must pass ValidMetric; it is interpolated into the
// query, never taken from user input unchecked.
func (s *Store) MetricStatistics(ctx context.Context, metric string, start, end time.Time) (*MetricStats, error) {
	if !ValidMetric(metric) {
		return nil, errors.New("invalid metric: " + metric)
	}

	sql := `
        SELECT MIN(` + metric + `), MAX(` + metric + `), AVG(` + metric + `), STDDEV_POP(` + metric + `)
        FROM readings
        WHERE ts >= $1 AND ts <= $2
    `

	stats := MetricStats{Metric: metric}
	if err := s.pool.QueryRow(ctx, sql, start, end).Scan(
		&stats.Min, &stats.Max, &stats.Avg, &stats.Stddev,
	); err != nil {
		return nil, err
	}
	return &stats, nil
}
