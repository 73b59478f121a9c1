package dungeon_test

import (
	"context"
	"testing"
	"time"

	"github.com/duskhollow/server/config"
	"github.com/duskhollow/server/game/dungeon"
	"github.com/duskhollow/server/game/event"
	"github.com/duskhollow/server/model"
	"github.com/duskhollow/server/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// snapshotStore answers the stale scan with a fixed, outdated result.
type snapshotStore struct {
	store.Store
	stale []model.Dungeon
}

func (s snapshotStore) StaleDungeons(context.Context, time.Time) ([]model.Dungeon, error) {
	return s.stale, nil
}

func TestForfeitStale_SkipsRunTouchedAfterScan(t *testing.T) {
	f := newFixture(t, config.GameConfig{})
	ctx := context.Background()
	c := f.character(t, alice.UserID, "Aria", nil)
	d, err := f.svc.Start(ctx, alice, c.ID, "easy")
	require.NoError(t, err)

	scanned := *d
	scanned.UpdatedAt = time.Now().Add(-2 * time.Hour)
	svc := dungeon.NewService(snapshotStore{Store: f.st, stale: []model.Dungeon{scanned}}, cat,
		config.GameConfig{TempInventorySize: 20}, event.NewBus(f.ps, nil), f.audit, zap.NewNop(),
		dungeon.WithRoller(f.dice))

	n, err := svc.ForfeitStale(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	got, err := f.st.DungeonByID(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, got.Active)
	assert.Equal(t, model.DungeonActive, got.State)
}
