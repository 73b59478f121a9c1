package audit

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/duskhollow/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func nop() *zap.Logger { return zap.NewNop() }

func TestNew_StartsWorker(t *testing.T) {
	st := testutil.SetupTestDB(t)
	svc := New(st, nop())
	require.NotNil(t, svc)
	svc.Stop(context.Background())
}

func TestLog_EnqueuedAndFlushed(t *testing.T) {
	st := testutil.SetupTestDB(t)
	svc := New(st, nop())

	svc.Log(Entry{
		TraceID:     "trace-123",
		UserID:      "user-1",
		CharacterID: "char-1",
		Action:      ActionReward,
		Detail:      map[string]int64{"experience": 120, "gold": 30},
	})

	svc.Stop(context.Background())

	logs, err := st.AuditLogs(context.Background(), "char-1", 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "trace-123", logs[0].TraceID)
	assert.Equal(t, "user-1", logs[0].UserID)
	assert.Equal(t, ActionReward, logs[0].Action)
	assert.NotEmpty(t, logs[0].ID)

	var detail map[string]int64
	require.NoError(t, json.Unmarshal(logs[0].Detail, &detail))
	assert.Equal(t, int64(120), detail["experience"])
	assert.Equal(t, int64(30), detail["gold"])
}

func TestLog_FilterByCharacter(t *testing.T) {
	st := testutil.SetupTestDB(t)
	svc := New(st, nop())

	svc.Log(Entry{CharacterID: "a", Action: ActionHeal})
	svc.Log(Entry{CharacterID: "b", Action: ActionHeal})
	svc.Log(Entry{CharacterID: "a", Action: ActionLaborPaid})
	svc.Stop(context.Background())

	ctx := context.Background()
	onlyA, err := st.AuditLogs(ctx, "a", 10)
	require.NoError(t, err)
	assert.Len(t, onlyA, 2)

	all, err := st.AuditLogs(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestLog_BatchFlush(t *testing.T) {
	st := testutil.SetupTestDB(t)
	svc := New(st, nop())

	for i := 0; i < 250; i++ {
		svc.Log(Entry{Action: "batch"})
	}
	svc.Stop(context.Background())

	logs, err := st.AuditLogs(context.Background(), "", 1000)
	require.NoError(t, err)
	assert.Len(t, logs, 250)
}

func TestStop_Idempotent(t *testing.T) {
	st := testutil.SetupTestDB(t)
	svc := New(st, nop())
	svc.Stop(context.Background())
	svc.Stop(context.Background())
}

func TestLog_NilDetail(t *testing.T) {
	st := testutil.SetupTestDB(t)
	svc := New(st, nop())

	svc.Log(Entry{Action: ActionDungeonForfeit})
	svc.Stop(context.Background())

	logs, err := st.AuditLogs(context.Background(), "", 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.JSONEq(t, `{}`, string(logs[0].Detail))
}

func TestLog_DropsWhenFull(t *testing.T) {
	st := testutil.SetupTestDB(t)
	svc := New(st, nop())

	for i := 0; i < 1100; i++ {
		svc.Log(Entry{Action: "flood"})
	}
	svc.Stop(context.Background())
}
