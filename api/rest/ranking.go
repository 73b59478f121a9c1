package rest

import (
	"net/http"
	"strconv"

	"github.com/duskhollow/server/game/ranking"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RankingHandler serves the public leaderboard.
type RankingHandler struct {
	board  *ranking.Board
	logger *zap.Logger
}

// NewRankingHandler creates a RankingHandler.
func NewRankingHandler(board *ranking.Board, logger *zap.Logger) *RankingHandler {
	return &RankingHandler{board: board, logger: logger}
}

// Top handles GET /api/ranking?limit=20.
func (h *RankingHandler) Top(c *gin.Context) {
	limit := 20
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= ranking.MaxTop {
		limit = l
	}
	entries, err := h.board.Top(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ranking": entries})
}
