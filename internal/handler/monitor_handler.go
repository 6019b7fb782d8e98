package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/courtside/pbp-edit-monitor-go/internal/service"
	"github.com/courtside/pbp-edit-monitor-go/pkg/logger"
)

// MonitorHandler exposes monitoring lifecycle control and scheduler status.
type MonitorHandler struct {
	monitor *service.Monitor
}

// NewMonitorHandler creates a new MonitorHandler instance.
func NewMonitorHandler(monitor *service.Monitor) *MonitorHandler {
	return &MonitorHandler{monitor: monitor}
}

type startMonitoringRequest struct {
	Fresh *bool `json:"fresh"`
}

// StartMonitoring begins monitoring a game. Fresh defaults to true: the
// stored actions are wiped and rebaselined before polling resumes.
func (h *MonitorHandler) StartMonitoring(c *gin.Context) {
	gameID := c.Param("gameId")

	var req startMonitoringRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	fresh := true
	if req.Fresh != nil {
		fresh = *req.Fresh
	}

	logger.Log.Info("Start monitoring requested",
		zap.String("gameId", gameID),
		zap.Bool("fresh", fresh),
	)

	if err := h.monitor.StartMonitoring(c.Request.Context(), gameID, fresh); err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"game_id":    gameID,
		"monitoring": true,
		"fresh":      fresh,
		"time":       time.Now(),
	})
}

// StopMonitoring turns monitoring off for a game.
func (h *MonitorHandler) StopMonitoring(c *gin.Context) {
	gameID := c.Param("gameId")

	if err := h.monitor.StopMonitoring(c.Request.Context(), gameID); err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"game_id":    gameID,
		"monitoring": false,
		"time":       time.Now(),
	})
}

// Status returns the scheduler's counters.
func (h *MonitorHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.monitor.Stats())
}

// SyncSchedule triggers an immediate schedule re-pull.
func (h *MonitorHandler) SyncSchedule(c *gin.Context) {
	count, err := h.monitor.SyncSchedule(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"games_synced": count,
		"time":         time.Now(),
	})
}
