// Package ranking keeps the level leaderboard in a cache sorted set, with the
// store as the source of truth when the set is cold.
package ranking

import (
	"context"
	"errors"

	"github.com/duskhollow/server/cache"
	"github.com/duskhollow/server/model"
	"github.com/duskhollow/server/store"
	"go.uber.org/zap"
)

const (
	zkey = "ranking:level"
	// MaxTop bounds both the public query and the periodic rebuild.
	MaxTop = 100
)

// Entry is one row of the leaderboard.
type Entry struct {
	Rank        int    `json:"rank"`
	CharacterID string `json:"character_id"`
	Name        string `json:"name"`
	Class       string `json:"class"`
	Level       int    `json:"level"`
	Experience  int64  `json:"experience"`
}

// Board is the leaderboard.
type Board struct {
	cache  cache.Cache
	chars  store.Characters
	logger *zap.Logger
}

func NewBoard(c cache.Cache, chars store.Characters, logger *zap.Logger) *Board {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Board{cache: c, chars: chars, logger: logger}
}

// Score orders by level, then by experience inside the level.
func Score(c *model.Character) float64 {
	return float64(c.Level)*1e9 + float64(c.Experience)
}

// Update records the character's current standing. Failures are logged only;
// the next Refresh repairs the set.
func (b *Board) Update(ctx context.Context, c *model.Character) {
	if err := b.cache.ZAdd(ctx, zkey, Score(c), c.ID); err != nil {
		b.logger.Warn("ranking update failed", zap.String("character_id", c.ID), zap.Error(err))
	}
}

// Remove drops a deleted character.
func (b *Board) Remove(ctx context.Context, characterID string) {
	if err := b.cache.ZRem(ctx, zkey, characterID); err != nil {
		b.logger.Warn("ranking remove failed", zap.String("character_id", characterID), zap.Error(err))
	}
}

// Top returns the best limit characters. A cold or unreachable sorted set
// falls back to the store and warms the set on the way.
func (b *Board) Top(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > MaxTop {
		limit = MaxTop
	}

	members, err := b.cache.ZRevRangeWithScores(ctx, zkey, 0, int64(limit-1))
	if err == nil && len(members) > 0 {
		entries := make([]Entry, 0, len(members))
		for _, m := range members {
			ch, err := b.chars.CharacterByID(ctx, m.Member)
			if errors.Is(err, store.ErrNotFound) {
				b.Remove(ctx, m.Member)
				continue
			}
			if err != nil {
				return nil, err
			}
			entries = append(entries, entryOf(len(entries)+1, ch))
		}
		return entries, nil
	}
	if err != nil {
		b.logger.Warn("ranking cache read failed, using store", zap.Error(err))
	}

	chars, err := b.chars.TopCharacters(ctx, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, len(chars))
	for i := range chars {
		entries[i] = entryOf(i+1, &chars[i])
		b.Update(ctx, &chars[i])
	}
	return entries, nil
}

// Refresh rebuilds the sorted set from the store and returns how many
// characters it holds.
func (b *Board) Refresh(ctx context.Context) (int, error) {
	chars, err := b.chars.TopCharacters(ctx, MaxTop)
	if err != nil {
		return 0, err
	}
	members := make([]cache.ZMember, len(chars))
	for i := range chars {
		members[i] = cache.ZMember{Member: chars[i].ID, Score: Score(&chars[i])}
	}
	if err := b.cache.ReplaceZSet(ctx, zkey, members); err != nil {
		return 0, err
	}
	return len(chars), nil
}

func entryOf(rank int, c *model.Character) Entry {
	return Entry{
		Rank:        rank,
		CharacterID: c.ID,
		Name:        c.Name,
		Class:       c.Class,
		Level:       c.Level,
		Experience:  c.Experience,
	}
}
