// Package sse streams announcements and character events to browsers.
package sse

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/duskhollow/server/cache"
	"github.com/duskhollow/server/game"
	"github.com/duskhollow/server/game/event"
	mw "github.com/duskhollow/server/middleware"
	"github.com/duskhollow/server/store"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	backlogKey  = "announce:backlog"
	backlogSize = 20
	keepalive   = 30 * time.Second
)

// Handler handles the SSE endpoint.
type Handler struct {
	pubsub cache.PubSub
	c      cache.Cache
	bus    *event.Bus
	chars  store.Characters
	logger *zap.Logger
}

// NewHandler creates a new SSE Handler.
func NewHandler(pubsub cache.PubSub, c cache.Cache, bus *event.Bus, chars store.Characters, logger *zap.Logger) *Handler {
	return &Handler{pubsub: pubsub, c: c, bus: bus, chars: chars, logger: logger}
}

// ServeSSE handles GET /sse?token=<jwt>[&char_id=<id>]. It must sit behind
// middleware.Auth. Announcements always stream; with char_id the caller
// also receives that character's events.
func (h *Handler) ServeSSE(c *gin.Context) {
	channels := []string{event.AnnounceChannel}
	if charID := c.Query("char_id"); charID != "" {
		ch, err := h.chars.CharacterByID(c.Request.Context(), charID)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		if err != nil {
			h.logger.Error("sse character lookup failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if !mw.Caller(c).CanRead(ch.UserID) {
			c.JSON(http.StatusForbidden, gin.H{"error": game.ErrNotOwner.Error()})
			return
		}
		channels = append(channels, event.Channel(charID))
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	subCtx, subCancel := context.WithCancel(c.Request.Context())
	defer subCancel()

	msgCh, unsub, err := h.pubsub.Subscribe(subCtx, channels...)
	if err != nil {
		h.logger.Error("sse subscribe failed", zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	defer unsub()

	c.SSEvent("connected", "{}")
	for _, payload := range h.backlog(c.Request.Context()) {
		c.SSEvent("announce", payload)
	}
	c.Writer.Flush()

	ticker := time.NewTicker(keepalive)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			name := "event"
			if msg.Channel == event.AnnounceChannel {
				name = "announce"
			}
			c.SSEvent(name, msg.Payload)
			c.Writer.Flush()

		case <-ticker.C:
			fmt.Fprintf(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()

		case <-c.Request.Context().Done():
			return
		}
	}
}

// backlog returns recent announcements, oldest first.
func (h *Handler) backlog(ctx context.Context) []string {
	items, err := h.c.LRange(ctx, backlogKey, 0, backlogSize-1)
	if err != nil {
		if !cache.IsNotFound(err) {
			h.logger.Warn("announce backlog read failed", zap.Error(err))
		}
		return nil
	}
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items
}

// Announce records the message in the backlog and publishes it to every
// connected client.
func (h *Handler) Announce(ctx context.Context, message string) error {
	ev := event.Event{Type: event.Announcement, Data: message, At: time.Now()}
	payload, err := ev.Encode()
	if err != nil {
		return err
	}
	if err := h.c.PushCapped(ctx, backlogKey, backlogSize, payload); err != nil {
		return err
	}
	h.bus.Emit(ctx, event.AnnounceChannel, ev)
	return nil
}
