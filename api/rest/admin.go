package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/duskhollow/server/audit"
	"github.com/duskhollow/server/cache"
	"github.com/duskhollow/server/game/ranking"
	mw "github.com/duskhollow/server/middleware"
	"github.com/duskhollow/server/model"
	"github.com/duskhollow/server/scheduler"
	"github.com/duskhollow/server/store"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Announcer broadcasts a server-wide message.
type Announcer interface {
	Announce(ctx context.Context, message string) error
}

// AdminHandler handles operator endpoints. Routes must sit behind
// middleware.AdminKey.
type AdminHandler struct {
	st       store.Store
	cache    cache.Cache
	sched    *scheduler.Scheduler
	board    *ranking.Board
	announce Announcer
	audit    audit.Logger
	logger   *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(
	st store.Store,
	c cache.Cache,
	sched *scheduler.Scheduler,
	board *ranking.Board,
	announce Announcer,
	auditLog audit.Logger,
	logger *zap.Logger,
) *AdminHandler {
	if auditLog == nil {
		auditLog = audit.Nop{}
	}
	return &AdminHandler{st: st, cache: c, sched: sched, board: board, announce: announce, audit: auditLog, logger: logger}
}

// Register mounts the admin routes.
func (h *AdminHandler) Register(g *gin.RouterGroup) {
	g.GET("/metrics", h.Metrics)
	g.GET("/users", h.ListUsers)
	g.POST("/users/:id/role", h.SetRole)
	g.POST("/users/:id/ban", h.Ban)
	g.GET("/scheduler", h.ListSchedulerTasks)
	g.POST("/scheduler/:name/run", h.RunSchedulerTask)
	g.POST("/ranking/refresh", h.RefreshRanking)
	g.POST("/announce", h.Announce)
	g.GET("/audit", h.AuditLogs)
}

// Metrics returns server health metrics.
// GET /api/admin/metrics
func (h *AdminHandler) Metrics(c *gin.Context) {
	ctx := c.Request.Context()
	chars, err := h.st.CountCharacters(ctx)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	active, err := h.st.CountActiveDungeons(ctx)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"characters":      chars,
		"active_dungeons": active,
		"scheduler_tasks": h.sched.ListTickers(),
		"pending_delays":  h.sched.PendingDelays(),
	})
}

// ListUsers returns a page of accounts.
// GET /api/admin/users?offset=0&limit=50
func (h *AdminHandler) ListUsers(c *gin.Context) {
	offset, _ := strconv.Atoi(c.Query("offset"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	users, err := h.st.ListUsers(c.Request.Context(), offset, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "count": len(users)})
}

type roleRequest struct {
	Role string `json:"role" binding:"required,oneof=user admin"`
}

// SetRole changes an account's role. It applies from the user's next token.
// POST /api/admin/users/:id/role
func (h *AdminHandler) SetRole(c *gin.Context) {
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	u, err := h.st.UserByID(ctx, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	old := u.Role
	u.Role = req.Role
	if err := h.st.UpdateUser(ctx, u); err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.audit.Log(audit.Entry{
		TraceID: mw.GetTraceID(c),
		UserID:  u.ID,
		Action:  audit.ActionRoleChanged,
		Detail:  gin.H{"from": old, "to": u.Role},
	})
	c.JSON(http.StatusOK, gin.H{"user": u})
}

type banRequest struct {
	Banned *bool `json:"banned" binding:"required"`
}

// Ban bans or unbans an account. Live sessions are refused at once.
// POST /api/admin/users/:id/ban
func (h *AdminHandler) Ban(c *gin.Context) {
	var req banRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	u, err := h.st.UserByID(ctx, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if *req.Banned {
		u.Status = model.UserStatusBanned
		err = h.cache.Set(ctx, mw.BannedKey(u.ID), "1", 0)
	} else {
		u.Status = model.UserStatusActive
		err = h.cache.Del(ctx, mw.BannedKey(u.ID))
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if err := h.st.UpdateUser(ctx, u); err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.audit.Log(audit.Entry{
		TraceID: mw.GetTraceID(c),
		UserID:  u.ID,
		Action:  audit.ActionUserBanned,
		Detail:  gin.H{"banned": *req.Banned},
	})
	h.logger.Info("account ban changed", zap.String("user_id", u.ID), zap.Bool("banned", *req.Banned))
	c.JSON(http.StatusOK, gin.H{"user": u})
}

// ListSchedulerTasks returns every periodic task with its last run.
// GET /api/admin/scheduler
func (h *AdminHandler) ListSchedulerTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": h.sched.Tasks()})
}

// RunSchedulerTask runs a periodic task immediately.
// POST /api/admin/scheduler/:name/run
func (h *AdminHandler) RunSchedulerTask(c *gin.Context) {
	err := h.sched.RunNow(c.Param("name"))
	if errors.Is(err, scheduler.ErrUnknownTask) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown task"})
		return
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

// RefreshRanking rebuilds the leaderboard from the store.
// POST /api/admin/ranking/refresh
func (h *AdminHandler) RefreshRanking(c *gin.Context) {
	n, err := h.board.Refresh(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"characters": n})
}

type announceRequest struct {
	Message string `json:"message" binding:"required,max=500"`
}

// Announce broadcasts a message to every SSE client.
// POST /api/admin/announce
func (h *AdminHandler) Announce(c *gin.Context) {
	var req announceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.announce.Announce(c.Request.Context(), req.Message); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "sent"})
}

// AuditLogs lists recent audit entries, optionally for one character.
// GET /api/admin/audit?character_id=&limit=100
func (h *AdminHandler) AuditLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	logs, err := h.st.AuditLogs(c.Request.Context(), c.Query("character_id"), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}
