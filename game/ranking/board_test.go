package ranking_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/duskhollow/server/game/ranking"
	"github.com/duskhollow/server/model"
	"github.com/duskhollow/server/store"
	"github.com/duskhollow/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, st store.Store, levels ...int) []*model.Character {
	t.Helper()
	ctx := context.Background()
	u := &model.User{ID: model.NewID(), Username: "ranker", PasswordHash: "x", Role: model.RoleUser, Status: model.UserStatusActive, CreatedAt: time.Now()}
	require.NoError(t, st.CreateUser(ctx, u))
	var out []*model.Character
	for i, lv := range levels {
		c := &model.Character{
			ID: model.NewID(), UserID: u.ID, Name: fmt.Sprintf("Hero%d", i+1), Class: "warrior",
			Level: lv, Experience: int64(i * 10), HP: 10, MaxHP: 10, CreatedAt: time.Now(), UpdatedAt: time.Now(),
		}
		require.NoError(t, st.CreateCharacter(ctx, c))
		out = append(out, c)
	}
	return out
}

func TestTop_ColdCacheFallsBackToStore(t *testing.T) {
	st := testutil.SetupTestDB(t)
	c, _ := testutil.SetupTestCache(t)
	seed(t, st, 1, 5, 3)
	b := ranking.NewBoard(c, st, nil)
	ctx := context.Background()

	entries, err := b.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "Hero2", entries[0].Name)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "Hero3", entries[1].Name)
	assert.Equal(t, "Hero1", entries[2].Name)

	// warmed
	members, err := c.ZRevRangeWithScores(ctx, "ranking:level", 0, -1)
	require.NoError(t, err)
	assert.Len(t, members, 3)
}

func TestUpdate_Reorders(t *testing.T) {
	st := testutil.SetupTestDB(t)
	c, _ := testutil.SetupTestCache(t)
	chars := seed(t, st, 2, 4)
	b := ranking.NewBoard(c, st, nil)
	ctx := context.Background()
	_, err := b.Refresh(ctx)
	require.NoError(t, err)

	chars[0].Level = 9
	require.NoError(t, st.UpdateCharacter(ctx, chars[0]))
	b.Update(ctx, chars[0])

	entries, err := b.Top(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, chars[0].ID, entries[0].CharacterID)
	assert.Equal(t, 9, entries[0].Level)
}

func TestTop_SkipsDeleted(t *testing.T) {
	st := testutil.SetupTestDB(t)
	c, _ := testutil.SetupTestCache(t)
	chars := seed(t, st, 2, 4)
	b := ranking.NewBoard(c, st, nil)
	ctx := context.Background()
	n, err := b.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, st.DeleteCharacter(ctx, chars[1].ID))
	entries, err := b.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, chars[0].ID, entries[0].CharacterID)

	_, err = c.ZScore(ctx, "ranking:level", chars[1].ID)
	assert.Error(t, err)
}

func TestScore_LevelDominates(t *testing.T) {
	low := &model.Character{Level: 2, Experience: 900}
	high := &model.Character{Level: 3}
	assert.Greater(t, ranking.Score(high), ranking.Score(low))
}
