package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aircanary/aircanary/auth"
	"github.com/aircanary/aircanary/db"
)

// userID resolves the authenticated user id or aborts with 401.
func userID(c *gin.Context) (int64, bool) {
	id, ok := auth.UserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return 0, false
	}
	return id, true
}

// handleListAlerts returns the caller's unacknowledged alerts newest-first.
// GET /api/alerts
func (s *Server) handleListAlerts(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	alerts, err := s.store.UnacknowledgedAlerts(ctx, uid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// handleAcknowledge acknowledges one alert owned by the caller.
// POST /api/alerts/:id/acknowledge
func (s *Server) handleAcknowledge(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	alertID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert id"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	alert, err := s.store.AcknowledgeAlert(ctx, uid, alertID)
	switch {
	case errors.Is(err, db.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
		return
	case errors.Is(err, db.ErrAlreadyAcknowledged):
		c.JSON(http.StatusConflict, gin.H{"error": "alert already acknowledged"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, alert)
}

// handleAcknowledgeAll acknowledges every outstanding alert for the caller.
// Nothing outstanding is a success with count zero, not a conflict.
// POST /api/alerts/acknowledge-all
func (s *Server) handleAcknowledgeAll(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	ids, err := s.store.AcknowledgeAll(ctx, uid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"acknowledged": len(ids),
		"ids":          ids,
	})
}
