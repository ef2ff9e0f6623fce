package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aircanary/aircanary/alerting"
	"github.com/aircanary/aircanary/db"
)

// handleGetSettings returns the caller's threshold settings, creating the
// default set when none exist yet.
// GET /api/settings
func (s *Server) handleGetSettings(c *gin.Context) {
	userID, ok := userID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	settings, err := s.store.SettingsByUser(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		settings, err = s.store.UpsertSettings(ctx, db.DefaultSettings(userID))
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, settings)
}

// settingsInput is the full-replacement settings payload. Partial updates
// are not supported.
type settingsInput struct {
	Notifications *bool              `json:"notifications" binding:"required"`
	Format        string             `json:"format" binding:"required"`
	Thresholds    map[string]float64 `json:"thresholds" binding:"required"`
}

// handleUpdateSettings replaces the caller's settings wholesale.
// POST /api/settings
func (s *Server) handleUpdateSettings(c *gin.Context) {
	userID, ok := userID(c)
	if !ok {
		return
	}

	var input settingsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings: " + err.Error()})
		return
	}

	for name, value := range input.Thresholds {
		if !validPollutant(name) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown pollutant: " + name})
			return
		}
		if value <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "threshold for " + name + " must be positive"})
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	settings, err := s.store.UpsertSettings(ctx, db.UserSettings{
		UserID:        userID,
		Notifications: *input.Notifications,
		Format:        input.Format,
		Thresholds:    input.Thresholds,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, settings)
}

func validPollutant(name string) bool {
	for _, p := range alerting.Pollutants {
		if name == p.String() {
			return true
		}
	}
	return false
}
