// Package event publishes per-character notifications over the cache pubsub.
// The SSE endpoint relays them to browsers.
package event

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

const (
	LevelUp          = "level_up"
	DungeonCompleted = "dungeon_completed"
	DungeonFailed    = "dungeon_failed"
	DungeonForfeited = "dungeon_forfeited"
	LaborFinished    = "labor_finished"
	Announcement     = "announcement"
)

// AnnounceChannel carries server-wide announcements.
const AnnounceChannel = "announce"

// Channel is the pubsub channel of one character.
func Channel(characterID string) string { return "char:" + characterID }

// Event is the JSON payload published on a channel.
type Event struct {
	Type        string      `json:"type"`
	CharacterID string      `json:"character_id,omitempty"`
	Data        interface{} `json:"data,omitempty"`
	At          time.Time   `json:"at"`
}

// Encode renders the event as its wire payload.
func (e Event) Encode() (string, error) {
	b, err := json.Marshal(e)
	return string(b), err
}

// Publisher is satisfied by cache.PubSub.
type Publisher interface {
	Publish(ctx context.Context, channel, message string) error
}

// Bus publishes events and never fails the caller: delivery is best-effort.
type Bus struct {
	pub    Publisher
	logger *zap.Logger
}

// NewBus wraps a publisher. A nil publisher makes every Publish a no-op.
func NewBus(pub Publisher, logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{pub: pub, logger: logger}
}

// Character publishes an event on the character's channel.
func (b *Bus) Character(ctx context.Context, characterID, typ string, data interface{}) {
	b.Emit(ctx, Channel(characterID), Event{Type: typ, CharacterID: characterID, Data: data, At: time.Now()})
}

// Announce publishes a server-wide message.
func (b *Bus) Announce(ctx context.Context, message string) {
	b.Emit(ctx, AnnounceChannel, Event{Type: Announcement, Data: message, At: time.Now()})
}

// Emit publishes ev on an arbitrary channel.
func (b *Bus) Emit(ctx context.Context, channel string, ev Event) {
	if b == nil || b.pub == nil {
		return
	}
	payload, err := ev.Encode()
	if err != nil {
		b.logger.Warn("event marshal failed", zap.String("type", ev.Type), zap.Error(err))
		return
	}
	if err := b.pub.Publish(ctx, channel, payload); err != nil {
		b.logger.Warn("event publish failed",
			zap.String("channel", channel), zap.String("type", ev.Type), zap.Error(err))
	}
}
