package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/courtside/pbp-edit-monitor-go/internal/db"
	"github.com/courtside/pbp-edit-monitor-go/internal/db/repository"
	"github.com/courtside/pbp-edit-monitor-go/internal/service"
)

// GameHandler serves game records.
type GameHandler struct {
	games repository.GameRepository
}

// NewGameHandler creates a new GameHandler instance.
func NewGameHandler(games repository.GameRepository) *GameHandler {
	return &GameHandler{games: games}
}

// List returns all known games ordered by tip-off time.
func (h *GameHandler) List(c *gin.Context) {
	games, err := h.games.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"games": games, "count": len(games)})
}

// Get returns one game.
func (h *GameHandler) Get(c *gin.Context) {
	gameID := c.Param("gameId")

	game, err := h.games.Get(c.Request.Context(), gameID)
	if err != nil {
		if db.IsNotFound(err) {
			handleError(c, service.ErrGameNotFound)
			return
		}
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, game)
}
