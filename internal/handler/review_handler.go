package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/courtside/pbp-edit-monitor-go/internal/service"
)

// ReviewHandler exposes the play-by-play views and the operator triage
// workflow.
type ReviewHandler struct {
	reviews *service.ReviewService
}

// NewReviewHandler creates a new ReviewHandler instance.
func NewReviewHandler(reviews *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// ActionsByPeriod returns the game's play-by-play grouped by period.
func (h *ReviewHandler) ActionsByPeriod(c *gin.Context) {
	gameID := c.Param("gameId")

	groups, err := h.reviews.ActionsByPeriod(c.Request.Context(), gameID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"game_id": gameID, "periods": groups})
}

// EditedActions returns only actions with a significant edit or deletion.
func (h *ReviewHandler) EditedActions(c *gin.Context) {
	gameID := c.Param("gameId")

	actions, err := h.reviews.EditedActions(c.Request.Context(), gameID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"game_id": gameID, "actions": actions, "count": len(actions)})
}

// SetReviewStatus records the operator's triage decision for one action.
func (h *ReviewHandler) SetReviewStatus(c *gin.Context) {
	gameID := c.Param("gameId")

	actionNumber, err := strconv.Atoi(c.Param("actionNumber"))
	if err != nil {
		badRequest(c, "Invalid action number: "+c.Param("actionNumber"))
		return
	}

	var update service.ReviewUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	action, err := h.reviews.SetReviewStatus(c.Request.Context(), gameID, actionNumber, update)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, action)
}

// BatchApproveUnedited approves every unedited, unreviewed action.
func (h *ReviewHandler) BatchApproveUnedited(c *gin.Context) {
	gameID := c.Param("gameId")

	count, err := h.reviews.BatchApproveUnedited(c.Request.Context(), gameID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"game_id": gameID, "approved": count})
}

// ClearAllReviews resets review state for the whole game.
func (h *ReviewHandler) ClearAllReviews(c *gin.Context) {
	gameID := c.Param("gameId")

	count, err := h.reviews.ClearAllReviews(c.Request.Context(), gameID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"game_id": gameID, "cleared": count})
}

// Stats returns aggregate review and edit statistics for a game.
func (h *ReviewHandler) Stats(c *gin.Context) {
	gameID := c.Param("gameId")

	stats, err := h.reviews.Stats(c.Request.Context(), gameID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
