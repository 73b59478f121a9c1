package rest

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/duskhollow/server/cache"
	"github.com/duskhollow/server/config"
	mw "github.com/duskhollow/server/middleware"
	"github.com/duskhollow/server/model"
	"github.com/duskhollow/server/store"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler handles authentication REST endpoints.
type AuthHandler struct {
	st     store.Users
	cache  cache.Cache
	sec    config.SecurityConfig
	logger *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(st store.Users, c cache.Cache, sec config.SecurityConfig, logger *zap.Logger) *AuthHandler {
	if sec.BcryptCost == 0 {
		sec.BcryptCost = bcrypt.DefaultCost
	}
	if sec.JWTTTLH <= 0 {
		sec.JWTTTLH = 72 * time.Hour
	}
	return &AuthHandler{st: st, cache: c, sec: sec, logger: logger}
}

type credentials struct {
	Username string `json:"username" binding:"required,min=3,max=32,alphanum"`
	Password string `json:"password" binding:"required,min=6,max=64"`
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.sec.BcryptCost)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	u := &model.User{
		ID:           model.NewID(),
		Username:     strings.ToLower(req.Username),
		PasswordHash: string(hash),
		Role:         model.RoleUser,
		Status:       model.UserStatusActive,
		CreatedAt:    time.Now(),
	}
	if err := h.st.CreateUser(c.Request.Context(), u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
			return
		}
		respondError(c, h.logger, err)
		return
	}
	h.issue(c, u, http.StatusCreated)
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	u, err := h.st.UserByUsername(ctx, strings.ToLower(req.Username))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if u.Status == model.UserStatusBanned {
		c.JSON(http.StatusForbidden, gin.H{"error": "account banned"})
		return
	}

	now := time.Now()
	u.LastLoginAt = &now
	u.LastLoginIP = c.ClientIP()
	if err := h.st.UpdateUser(ctx, u); err != nil {
		h.logger.Warn("last login update failed", zap.String("user_id", u.ID), zap.Error(err))
	}
	h.issue(c, u, http.StatusOK)
}

func (h *AuthHandler) issue(c *gin.Context, u *model.User, status int) {
	token, err := mw.GenerateToken(u.ID, u.Role, h.sec.JWTSecret, h.sec.JWTTTLH)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.cache.Set(ctx, mw.SessionKey(token), u.ID, h.sec.JWTTTLH); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(status, gin.H{"token": token, "user": u})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	_ = h.cache.Del(ctx, mw.SessionKey(mw.GetToken(c)))
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Refresh handles POST /api/auth/refresh. The old session is dropped.
func (h *AuthHandler) Refresh(c *gin.Context) {
	u, err := h.st.UserByID(c.Request.Context(), mw.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	_ = h.cache.Del(ctx, mw.SessionKey(mw.GetToken(c)))
	h.issue(c, u, http.StatusOK)
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	u, err := h.st.UserByID(c.Request.Context(), mw.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

// verifyPassword re-checks the caller's password before destructive actions.
func verifyPassword(ctx context.Context, users store.Users, userID, password string) error {
	u, err := users.UserByID(ctx, userID)
	if err != nil {
		return err
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}
