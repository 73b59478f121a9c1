package gormstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/duskhollow/server/model"
	"github.com/duskhollow/server/store"
	"github.com/duskhollow/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func newCharacter(userID, name string, level int, exp int64) *model.Character {
	return &model.Character{
		ID: model.NewID(), UserID: userID, Name: name, Class: "warrior",
		Level: level, Experience: exp, HP: 10, MaxHP: 10,
	}
}

func TestUsers(t *testing.T) {
	st := testutil.SetupTestDB(t)
	ctx := context.Background()

	u := &model.User{ID: model.NewID(), Username: "ana", PasswordHash: "x", Role: model.RoleUser, Status: model.UserStatusActive}
	require.NoError(t, st.CreateUser(ctx, u))
	assert.False(t, u.CreatedAt.IsZero())

	dup := &model.User{ID: model.NewID(), Username: "ana", PasswordHash: "y", Role: model.RoleUser}
	assert.ErrorIs(t, st.CreateUser(ctx, dup), store.ErrDuplicate)

	got, err := st.UserByUsername(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got.Role = model.RoleAdmin
	require.NoError(t, st.UpdateUser(ctx, got))
	got, err = st.UserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsAdmin())

	_, err = st.UserByID(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	users, err := st.ListUsers(ctx, 0, 10)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestCharacters_TopAndDelete(t *testing.T) {
	st := testutil.SetupTestDB(t)
	ctx := context.Background()

	a := newCharacter("u1", "Alpha", 3, 10)
	b := newCharacter("u1", "Beta", 3, 90)
	c := newCharacter("u2", "Gamma", 1, 500)
	for _, ch := range []*model.Character{a, b, c} {
		require.NoError(t, st.CreateCharacter(ctx, ch))
	}
	assert.ErrorIs(t, st.CreateCharacter(ctx, newCharacter("u3", "Alpha", 1, 0)), store.ErrDuplicate)

	top, err := st.TopCharacters(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, []string{"Beta", "Alpha", "Gamma"}, []string{top[0].Name, top[1].Name, top[2].Name})

	mine, err := st.CharactersByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	n, err := st.CountCharacters(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	require.NoError(t, st.DeleteCharacter(ctx, a.ID))
	assert.ErrorIs(t, st.DeleteCharacter(ctx, a.ID), store.ErrNotFound)
}

func TestDungeons_RoundTripAndQueries(t *testing.T) {
	st := testutil.SetupTestDB(t)
	ctx := context.Background()

	d := &model.Dungeon{
		ID: model.NewID(), CharacterID: "c1", UserID: "u1", Difficulty: "easy",
		Stage: 2, MaxStages: 3, Active: true, State: model.DungeonActive,
		Encounter: &model.Encounter{Kind: model.EncounterCombat, Enemy: &model.Enemy{Key: "goblin", HP: 5, MaxHP: 9}},
		TempInventory: []model.LootItem{{Key: "minor_potion", Name: "Minor Potion", Heal: 20}},
		Rewards:       model.Rewards{Experience: 12, Gold: 5},
	}
	require.NoError(t, st.CreateDungeon(ctx, d))

	active, err := st.ActiveDungeon(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, active.Encounter)
	assert.Equal(t, 5, active.Encounter.Enemy.HP)
	assert.Equal(t, "minor_potion", active.TempInventory[0].Key)
	assert.Equal(t, int64(12), active.Rewards.Experience)

	stale, err := st.StaleDungeons(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, stale, 1)
	stale, err = st.StaleDungeons(ctx, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Empty(t, stale)

	active.Active = false
	active.State = model.DungeonForfeited
	active.Encounter = nil
	require.NoError(t, st.UpdateDungeon(ctx, active))

	_, err = st.ActiveDungeon(ctx, "c1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	n, err := st.CountActiveDungeons(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := st.DungeonByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Encounter)
	assert.Equal(t, model.DungeonForfeited, got.State)

	require.NoError(t, st.DeleteDungeonsByCharacter(ctx, "c1"))
	list, err := st.DungeonsByCharacter(ctx, "c1", 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTx_Rollback(t *testing.T) {
	st := testutil.SetupTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := st.Tx(ctx, func(ctx context.Context, tx store.Store) error {
		require.NoError(t, tx.CreateCharacter(ctx, newCharacter("u1", "Ghost", 1, 0)))
		require.NoError(t, tx.CreateItems(ctx, []*model.Item{{ID: model.NewID(), CharacterID: "x", Key: "k", Name: "n", Kind: model.ItemKindWeapon}}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := st.CountCharacters(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	items, err := st.ItemsByCharacter(ctx, "x")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestStatusesItemsAndAudit(t *testing.T) {
	st := testutil.SetupTestDB(t)
	ctx := context.Background()
	now := time.Now()

	s := &model.CharacterStatus{CharacterID: "c1"}
	s.Idle(now)
	require.NoError(t, st.SaveStatus(ctx, s))
	s.Activity = model.ActivityLabor
	require.NoError(t, st.SaveStatus(ctx, s))
	got, err := st.StatusByCharacter(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, model.ActivityLabor, got.Activity)
	require.NoError(t, st.DeleteStatus(ctx, "c1"))
	_, err = st.StatusByCharacter(ctx, "c1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	it := &model.Item{ID: model.NewID(), CharacterID: "c1", Key: "iron_sword", Name: "Iron Sword", Kind: model.ItemKindWeapon, Attack: 3}
	require.NoError(t, st.CreateItems(ctx, []*model.Item{it}))
	it.Equipped = true
	require.NoError(t, st.UpdateItem(ctx, it))
	loaded, err := st.ItemByID(ctx, it.ID)
	require.NoError(t, err)
	assert.True(t, loaded.Equipped)
	require.NoError(t, st.DeleteItem(ctx, it.ID))
	assert.ErrorIs(t, st.DeleteItem(ctx, it.ID), store.ErrNotFound)

	require.NoError(t, st.InsertAuditLogs(ctx, []*model.AuditLog{
		{ID: model.NewID(), CharacterID: "c1", Action: "reward", Detail: datatypes.JSON(`{"gold":5}`), CreatedAt: now.Add(-time.Second)},
		{ID: model.NewID(), CharacterID: "c2", Action: "heal", Detail: datatypes.JSON(`{}`), CreatedAt: now},
	}))
	all, err := st.AuditLogs(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "heal", all[0].Action)
	one, err := st.AuditLogs(ctx, "c1", 10)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.JSONEq(t, `{"gold":5}`, string(one[0].Detail))
}
