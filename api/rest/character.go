package rest

import (
	"errors"
	"net/http"

	"github.com/duskhollow/server/game/character"
	mw "github.com/duskhollow/server/middleware"
	"github.com/duskhollow/server/store"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// CharacterHandler handles character REST endpoints.
type CharacterHandler struct {
	chars  *character.Service
	users  store.Users
	logger *zap.Logger
}

// NewCharacterHandler creates a new CharacterHandler.
func NewCharacterHandler(chars *character.Service, users store.Users, logger *zap.Logger) *CharacterHandler {
	return &CharacterHandler{chars: chars, users: users, logger: logger}
}

// Register mounts the character routes on an authenticated group.
func (h *CharacterHandler) Register(g *gin.RouterGroup) {
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/reward", h.Reward)
	g.POST("/:id/heal", h.Heal)
	g.GET("/:id/status", h.Status)
	g.POST("/:id/labor", h.StartLabor)
	g.POST("/:id/labor/collect", h.CollectLabor)
	g.POST("/:id/labor/cancel", h.CancelLabor)
	g.GET("/:id/items", h.ListItems)
	g.POST("/:id/items/:item_id/equip", h.Equip)
	g.POST("/:id/items/:item_id/unequip", h.Unequip)
	g.POST("/:id/items/:item_id/use", h.UseItem)
	g.POST("/:id/items/:item_id/sell", h.SellItem)
	g.POST("/:id/image", h.Portrait)
}

// List handles GET /api/characters.
func (h *CharacterHandler) List(c *gin.Context) {
	chars, err := h.chars.List(c.Request.Context(), mw.Caller(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"characters": chars})
}

type createCharacterRequest struct {
	Name  string `json:"name"  binding:"required"`
	Class string `json:"class" binding:"required"`
}

// Create handles POST /api/characters.
func (h *CharacterHandler) Create(c *gin.Context) {
	var req createCharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ch, err := h.chars.Create(c.Request.Context(), mw.Caller(c), req.Name, req.Class)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"character": ch})
}

// Get handles GET /api/characters/:id and returns the full sheet.
func (h *CharacterHandler) Get(c *gin.Context) {
	sheet, err := h.chars.Sheet(c.Request.Context(), mw.Caller(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"character": sheet})
}

type deleteCharacterRequest struct {
	Password string `json:"password" binding:"required"`
}

// Delete handles DELETE /api/characters/:id. The password is re-checked.
func (h *CharacterHandler) Delete(c *gin.Context) {
	var req deleteCharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	caller := mw.Caller(c)
	if err := verifyPassword(ctx, h.users, caller.UserID, req.Password); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			c.JSON(http.StatusForbidden, gin.H{"error": "wrong password"})
			return
		}
		respondError(c, h.logger, err)
		return
	}
	if err := h.chars.Delete(ctx, caller, c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

type rewardRequest struct {
	Experience int64 `json:"experience"`
	Gold       int64 `json:"gold"`
}

// Reward handles POST /api/characters/:id/reward.
func (h *CharacterHandler) Reward(c *gin.Context) {
	var req rewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.chars.Reward(c.Request.Context(), mw.Caller(c), c.Param("id"), req.Experience, req.Gold)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Heal handles POST /api/characters/:id/heal.
func (h *CharacterHandler) Heal(c *gin.Context) {
	res, err := h.chars.Heal(c.Request.Context(), mw.Caller(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Status handles GET /api/characters/:id/status.
func (h *CharacterHandler) Status(c *gin.Context) {
	st, err := h.chars.Status(c.Request.Context(), mw.Caller(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": st})
}

type laborRequest struct {
	Hours int `json:"hours" binding:"required"`
}

// StartLabor handles POST /api/characters/:id/labor.
func (h *CharacterHandler) StartLabor(c *gin.Context) {
	var req laborRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	st, err := h.chars.StartLabor(c.Request.Context(), mw.Caller(c), c.Param("id"), req.Hours)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": st})
}

// CollectLabor handles POST /api/characters/:id/labor/collect.
func (h *CharacterHandler) CollectLabor(c *gin.Context) {
	res, err := h.chars.CollectLabor(c.Request.Context(), mw.Caller(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// CancelLabor handles POST /api/characters/:id/labor/cancel.
func (h *CharacterHandler) CancelLabor(c *gin.Context) {
	st, err := h.chars.CancelLabor(c.Request.Context(), mw.Caller(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": st})
}

// ListItems handles GET /api/characters/:id/items.
func (h *CharacterHandler) ListItems(c *gin.Context) {
	items, err := h.chars.ListItems(c.Request.Context(), mw.Caller(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// Equip handles POST /api/characters/:id/items/:item_id/equip.
func (h *CharacterHandler) Equip(c *gin.Context) {
	res, err := h.chars.Equip(c.Request.Context(), mw.Caller(c), c.Param("id"), c.Param("item_id"))
	h.itemResult(c, res, err)
}

// Unequip handles POST /api/characters/:id/items/:item_id/unequip.
func (h *CharacterHandler) Unequip(c *gin.Context) {
	res, err := h.chars.Unequip(c.Request.Context(), mw.Caller(c), c.Param("id"), c.Param("item_id"))
	h.itemResult(c, res, err)
}

// UseItem handles POST /api/characters/:id/items/:item_id/use.
func (h *CharacterHandler) UseItem(c *gin.Context) {
	res, err := h.chars.UseItem(c.Request.Context(), mw.Caller(c), c.Param("id"), c.Param("item_id"))
	h.itemResult(c, res, err)
}

// SellItem handles POST /api/characters/:id/items/:item_id/sell.
func (h *CharacterHandler) SellItem(c *gin.Context) {
	res, err := h.chars.SellItem(c.Request.Context(), mw.Caller(c), c.Param("id"), c.Param("item_id"))
	h.itemResult(c, res, err)
}

func (h *CharacterHandler) itemResult(c *gin.Context, res *character.ItemResult, err error) {
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type portraitRequest struct {
	Prompt string `json:"prompt" binding:"max=1000"`
}

// Portrait handles POST /api/characters/:id/image.
func (h *CharacterHandler) Portrait(c *gin.Context) {
	var req portraitRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		badRequest(c, err)
		return
	}
	ch, err := h.chars.GeneratePortrait(c.Request.Context(), mw.Caller(c), c.Param("id"), req.Prompt)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"character": ch})
}
