package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/duskhollow/server/cache"
	"github.com/duskhollow/server/config"
	"github.com/duskhollow/server/game"
	"github.com/duskhollow/server/model"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	UserIDKey = "user_id"
	RoleKey   = "role"
	TokenKey  = "token"

	AdminKeyHeader = "X-Admin-Key"
)

// SessionKey is the cache key that keeps a token alive until logout.
func SessionKey(token string) string { return "session:" + token }

// BannedKey marks a user whose sessions must be refused.
func BannedKey(userID string) string { return "banned:" + userID }

func newTokenID() string { return uuid.NewString() }

// BearerToken extracts the token from the Authorization header, falling back
// to the token query parameter for EventSource clients.
func BearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return c.Query("token")
}

// Auth validates the JWT and checks the session cache.
func Auth(sec config.SecurityConfig, c cache.Cache) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenStr := BearerToken(ctx)
		if tokenStr == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		claims, err := ParseToken(tokenStr, sec.JWTSecret)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		cacheCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()
		exists, err := c.Exists(cacheCtx, SessionKey(tokenStr))
		if err != nil || !exists {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}
		if banned, _ := c.Exists(cacheCtx, BannedKey(claims.UserID)); banned {
			ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "account banned"})
			return
		}

		ctx.Set(UserIDKey, claims.UserID)
		ctx.Set(RoleKey, claims.Role)
		ctx.Set(TokenKey, tokenStr)
		ctx.Next()
	}
}

// AdminKey guards operator routes with a shared secret header. An empty key
// refuses everything.
func AdminKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(AdminKeyHeader)
		if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin key required"})
			return
		}
		c.Set(UserIDKey, "admin")
		c.Set(RoleKey, model.RoleAdmin)
		c.Next()
	}
}

// GetUserID returns the authenticated user id, or "".
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// GetRole returns the authenticated user's role, or "".
func GetRole(c *gin.Context) string {
	return c.GetString(RoleKey)
}

// GetToken returns the bearer token the request was authenticated with.
func GetToken(c *gin.Context) string {
	return c.GetString(TokenKey)
}

// Caller builds the game identity of the request.
func Caller(c *gin.Context) game.Caller {
	return game.Caller{UserID: GetUserID(c), Admin: GetRole(c) == model.RoleAdmin}
}
