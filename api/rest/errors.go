package rest

import (
	"errors"
	"io"
	"net/http"

	"github.com/duskhollow/server/game"
	mw "github.com/duskhollow/server/middleware"
	"github.com/duskhollow/server/store"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusOf maps a service error to its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, game.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, game.ErrConflict), errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, game.ErrPaymentRequired):
		return http.StatusPaymentRequired
	case errors.Is(err, game.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": msg}. Unclassified errors are logged and
// answered with a generic message.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status := statusOf(err)
	switch status {
	case http.StatusInternalServerError:
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("trace_id", mw.GetTraceID(c)),
			zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
	case http.StatusNotFound:
		c.JSON(status, gin.H{"error": "not found"})
	default:
		c.JSON(status, gin.H{"error": err.Error()})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// bindOptionalJSON binds the body into obj when one is sent, chunked or not.
// An empty body leaves obj at its zero value.
func bindOptionalJSON(c *gin.Context, obj any) error {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return nil
	}
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
