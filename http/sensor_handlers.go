package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aircanary/aircanary/classify"
	"github.com/aircanary/aircanary/db"
	"github.com/aircanary/aircanary/logger"
	"github.com/aircanary/aircanary/metrics"
)

// readingInput is the ingestion payload. All fields are required; pointers
// distinguish "absent" from a legitimate zero value.
type readingInput struct {
	Timestamp   *time.Time `json:"timestamp" binding:"required"`
	Temperature *float64   `json:"temperature" binding:"required"`
	Humidity    *float64   `json:"humidity" binding:"required"`
	PM25        *float64   `json:"pm25" binding:"required"`
	PM10        *float64   `json:"pm10" binding:"required"`
	CO2         *float64   `json:"co2" binding:"required"`
	VOC         *float64   `json:"voc" binding:"required"`
}

// handleIngest stores one reading, classifies it, runs the threshold
// evaluation pass and hands any notification intents to the dispatcher.
// POST /api/sensors/data
func (s *Server) handleIngest(c *gin.Context) {
	var input readingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		metrics.ReadingsRejectedTotal.Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reading: " + err.Error()})
		return
	}

	reading := db.Reading{
		Timestamp:   input.Timestamp.UTC(),
		Temperature: *input.Temperature,
		Humidity:    *input.Humidity,
		PM25:        *input.PM25,
		PM10:        *input.PM10,
		CO2:         *input.CO2,
		VOC:         *input.VOC,
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	id, err := s.store.InsertReading(ctx, reading)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storing reading failed"})
		return
	}
	reading.ID = id
	metrics.ReadingsIngestedTotal.Inc()

	s.classifyReading(ctx, reading)

	now := time.Now().UTC()
	result, err := s.evaluator.Evaluate(ctx, reading, now)
	if err != nil {
		// The reading is already committed; report the partial failure
		// rather than pretending full success or hiding the reading.
		hlog := logger.WithComponent("http")
		hlog.Error().Err(err).Int64("reading_id", id).
			Msg("alert evaluation failed after reading commit")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      "reading stored but alert evaluation failed",
			"reading_id": id,
		})
		return
	}

	for _, intent := range result.Intents {
		s.dispatcher.Enqueue(intent)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"timestamp":        now.Format("2006-01-02 15:04:05"),
		"reading_id":       id,
		"alerts_triggered": len(result.Alerts),
	})
}

// classifyReading records the predicted category for a reading. Failures are
// logged and never affect ingestion.
func (s *Server) classifyReading(ctx context.Context, reading db.Reading) {
	category, err := s.classifier.Classify(ctx, classify.Features{
		PM25: reading.PM25,
		PM10: reading.PM10,
		CO2:  reading.CO2,
		VOC:  reading.VOC,
	})
	if err != nil {
		hlog := logger.WithComponent("http")
		hlog.Warn().Err(err).Msg("classification failed")
		return
	}

	if _, err := s.store.InsertClassification(ctx, db.Classification{
		Timestamp: reading.Timestamp,
		PM25:      reading.PM25,
		PM10:      reading.PM10,
		CO2:       reading.CO2,
		VOC:       reading.VOC,
		Category:  string(category),
	}); err != nil {
		hlog := logger.WithComponent("http")
		hlog.Warn().Err(err).Msg("storing classification failed")
	}
}

// handleHistory returns readings newest-first, optionally bounded by a time
// range, capped at the configured history limit.
// GET /api/sensors/history
func (s *Server) handleHistory(c *gin.Context) {
	q := db.ReadingQuery{Limit: s.cfg.HistoryLimit}

	if startStr := c.Query("start"); startStr != "" {
		t, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start timestamp"})
			return
		}
		tt := t.UTC()
		q.Since = &tt
	}
	if endStr := c.Query("end"); endStr != "" {
		t, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end timestamp"})
			return
		}
		tt := t.UTC()
		q.Until = &tt
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	readings, err := s.store.FetchReadings(ctx, q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, readings)
}

// handleSummary returns the timestamp/temperature/humidity/pm25/pm10
// projection for the given range.
// GET /api/sensors/summary
func (s *Server) handleSummary(c *gin.Context) {
	q := db.ReadingQuery{}

	if startStr := c.Query("start_time"); startStr != "" {
		t, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_time"})
			return
		}
		tt := t.UTC()
		q.Since = &tt
	}
	if endStr := c.Query("end_time"); endStr != "" {
		t, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_time"})
			return
		}
		tt := t.UTC()
		q.Until = &tt
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	summaries, err := s.store.FetchSummaries(ctx, q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summaries)
}

// handleCurrent returns the most recent reading.
// GET /api/sensors/current
func (s *Server) handleCurrent(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	reading, err := s.store.LatestReading(ctx)
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no sensor data found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, reading)
}

// handleStats returns min/max/avg/stddev for one metric over a range.
// GET /api/stats
func (s *Server) handleStats(c *gin.Context) {
	metric := c.Query("metric")
	if !db.ValidMetric(metric) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid metric"})
		return
	}

	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start timestamp"})
		return
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end timestamp"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	stats, err := s.store.MetricStatistics(ctx, metric, start.UTC(), end.UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}
