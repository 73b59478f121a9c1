package rest

import (
	"net/http"
	"strconv"

	"github.com/duskhollow/server/game/dungeon"
	mw "github.com/duskhollow/server/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DungeonHandler handles dungeon lifecycle endpoints.
type DungeonHandler struct {
	dungeons *dungeon.Service
	logger   *zap.Logger
}

// NewDungeonHandler creates a DungeonHandler.
func NewDungeonHandler(dungeons *dungeon.Service, logger *zap.Logger) *DungeonHandler {
	return &DungeonHandler{dungeons: dungeons, logger: logger}
}

// RegisterCharacterRoutes mounts the per-character dungeon routes.
func (h *DungeonHandler) RegisterCharacterRoutes(g *gin.RouterGroup) {
	g.GET("/:id/dungeons", h.List)
	g.GET("/:id/dungeons/active", h.Active)
	g.POST("/:id/dungeons", h.Start)
}

// Register mounts the /api/dungeons routes.
func (h *DungeonHandler) Register(g *gin.RouterGroup) {
	g.GET("/:id", h.Get)
	g.POST("/:id/advance", h.Advance)
	g.POST("/:id/combat", h.Fight)
	g.POST("/:id/trap", h.Trap)
	g.POST("/:id/loot", h.Loot)
	g.POST("/:id/complete", h.Complete)
	g.POST("/:id/forfeit", h.Forfeit)
}

// List handles GET /api/characters/:id/dungeons?limit=20.
func (h *DungeonHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	runs, err := h.dungeons.List(c.Request.Context(), mw.Caller(c), c.Param("id"), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dungeons": runs})
}

// Active handles GET /api/characters/:id/dungeons/active.
func (h *DungeonHandler) Active(c *gin.Context) {
	d, err := h.dungeons.Active(c.Request.Context(), mw.Caller(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dungeon": d})
}

type startDungeonRequest struct {
	Difficulty string `json:"difficulty"`
}

// Start handles POST /api/characters/:id/dungeons.
func (h *DungeonHandler) Start(c *gin.Context) {
	var req startDungeonRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Difficulty == "" {
		req.Difficulty = "normal"
	}
	d, err := h.dungeons.Start(c.Request.Context(), mw.Caller(c), c.Param("id"), req.Difficulty)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"dungeon": d})
}

// Get handles GET /api/dungeons/:id.
func (h *DungeonHandler) Get(c *gin.Context) {
	d, err := h.dungeons.Get(c.Request.Context(), mw.Caller(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dungeon": d})
}

// Advance handles POST /api/dungeons/:id/advance.
func (h *DungeonHandler) Advance(c *gin.Context) {
	res, err := h.dungeons.Advance(c.Request.Context(), mw.Caller(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type actionRequest struct {
	Action string `json:"action" binding:"required"`
}

// Fight handles POST /api/dungeons/:id/combat.
func (h *DungeonHandler) Fight(c *gin.Context) {
	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.dungeons.Fight(c.Request.Context(), mw.Caller(c), c.Param("id"), req.Action)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Trap handles POST /api/dungeons/:id/trap.
func (h *DungeonHandler) Trap(c *gin.Context) {
	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.dungeons.ResolveTrap(c.Request.Context(), mw.Caller(c), c.Param("id"), req.Action)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type lootRequest struct {
	Indices []int `json:"indices"`
}

// Loot handles POST /api/dungeons/:id/loot. No indices takes everything.
func (h *DungeonHandler) Loot(c *gin.Context) {
	var req lootRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		badRequest(c, err)
		return
	}
	d, err := h.dungeons.PickupLoot(c.Request.Context(), mw.Caller(c), c.Param("id"), req.Indices)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dungeon": d})
}

// Complete handles POST /api/dungeons/:id/complete.
func (h *DungeonHandler) Complete(c *gin.Context) {
	res, err := h.dungeons.Complete(c.Request.Context(), mw.Caller(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Forfeit handles POST /api/dungeons/:id/forfeit.
func (h *DungeonHandler) Forfeit(c *gin.Context) {
	d, err := h.dungeons.Forfeit(c.Request.Context(), mw.Caller(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dungeon": d})
}
