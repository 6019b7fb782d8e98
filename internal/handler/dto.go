// Package handler provides HTTP request handlers for the operator API.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/courtside/pbp-edit-monitor-go/internal/service"
	"github.com/courtside/pbp-edit-monitor-go/pkg/logger"
)

// ErrorResponse is the shared error payload for the operator API.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ErrorResponse struct {
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
}

// handleError maps domain errors to HTTP responses.
func handleError(c *gin.Context, err error) {
	path := c.Request.URL.Path

	switch {
	case errors.Is(err, service.ErrGameNotFound), errors.Is(err, service.ErrActionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Status:    http.StatusNotFound,
			Error:     "Not Found",
			Message:   err.Error(),
			Timestamp: time.Now(),
			Path:      path,
		})
	case errors.Is(err, service.ErrInvalidReviewStatus), errors.Is(err, service.ErrInvalidFlagPriority):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Status:    http.StatusBadRequest,
			Error:     "Bad Request",
			Message:   err.Error(),
			Timestamp: time.Now(),
			Path:      path,
		})
	case errors.Is(err, service.ErrAlreadyRunning):
		c.JSON(http.StatusConflict, ErrorResponse{
			Status:    http.StatusConflict,
			Error:     "Conflict",
			Message:   err.Error(),
			Timestamp: time.Now(),
			Path:      path,
		})
	default:
		logger.Log.Error("Unexpected error",
			zap.Error(err),
			zap.String("path", path),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Status:    http.StatusInternalServerError,
			Error:     "Internal Server Error",
			Message:   "An unexpected error occurred",
			Timestamp: time.Now(),
			Path:      path,
		})
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Status:    http.StatusBadRequest,
		Error:     "Bad Request",
		Message:   message,
		Timestamp: time.Now(),
		Path:      c.Request.URL.Path,
	})
}
