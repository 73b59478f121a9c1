package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/duskhollow/server/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func whitelistCode(entries []string, remote string) int {
	r := gin.New()
	r.Use(middleware.IPWhitelist(entries))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remote + ":5555"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestIPWhitelist(t *testing.T) {
	assert.Equal(t, http.StatusOK, whitelistCode(nil, "203.0.113.9"))
	assert.Equal(t, http.StatusOK, whitelistCode([]string{"127.0.0.1"}, "127.0.0.1"))
	assert.Equal(t, http.StatusOK, whitelistCode([]string{"10.0.0.0/8"}, "10.20.30.40"))
	assert.Equal(t, http.StatusForbidden, whitelistCode([]string{"10.0.0.0/8", "127.0.0.1"}, "192.168.1.1"))
}
