package rest_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdmin_RequiresKey(t *testing.T) {
	s := newServer(t)
	token, _ := s.register(t, "rita")

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/admin/metrics", nil).Code)
	assert.Equal(t, http.StatusForbidden, s.as(token, http.MethodGet, "/api/admin/metrics", nil).Code)
}

func TestAdmin_Metrics(t *testing.T) {
	s := newServer(t)
	token, _ := s.register(t, "sam")
	charID := s.createCharacter(t, token, "Lark", "rogue")
	startDungeon(t, s, token, charID)

	w := s.admin(http.MethodGet, "/api/admin/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	m := decode(t, w)
	assert.Equal(t, float64(1), m["characters"])
	assert.Equal(t, float64(1), m["active_dungeons"])
	assert.Equal(t, []interface{}{"ranking_refresh"}, m["scheduler_tasks"])
}

func TestAdmin_UsersRoleAndBan(t *testing.T) {
	s := newServer(t)
	token, userID := s.register(t, "tess")

	w := s.admin(http.MethodGet, "/api/admin/users", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["count"])

	w = s.admin(http.MethodPost, "/api/admin/users/"+userID+"/role", map[string]string{"role": "overlord"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.admin(http.MethodPost, "/api/admin/users/"+userID+"/role", map[string]string{"role": "admin"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin", decode(t, w)["user"].(map[string]interface{})["role"])

	w = s.admin(http.MethodPost, "/api/admin/users/"+userID+"/ban", map[string]bool{"banned": true})
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusForbidden, s.as(token, http.MethodGet, "/api/auth/me", nil).Code)
	w = s.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "tess", "password": "hunter22"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.admin(http.MethodPost, "/api/admin/users/"+userID+"/ban", map[string]bool{"banned": false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusOK, s.as(token, http.MethodGet, "/api/auth/me", nil).Code)

	w = s.admin(http.MethodPost, "/api/admin/users/missing/ban", map[string]bool{"banned": true})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdmin_Scheduler(t *testing.T) {
	s := newServer(t)

	w := s.admin(http.MethodGet, "/api/admin/scheduler", nil)
	require.Equal(t, http.StatusOK, w.Code)
	tasks := decode(t, w)["tasks"].([]interface{})
	require.Len(t, tasks, 1)
	assert.Equal(t, "ranking_refresh", tasks[0].(map[string]interface{})["name"])

	assert.Equal(t, http.StatusOK, s.admin(http.MethodPost, "/api/admin/scheduler/ranking_refresh/run", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.admin(http.MethodPost, "/api/admin/scheduler/nope/run", nil).Code)

	w = s.admin(http.MethodGet, "/api/admin/scheduler", nil)
	tasks = decode(t, w)["tasks"].([]interface{})
	assert.Equal(t, float64(1), tasks[0].(map[string]interface{})["runs"])
}

func TestAdmin_RankingRefreshAndAnnounce(t *testing.T) {
	s := newServer(t)
	token, _ := s.register(t, "uma")
	s.createCharacter(t, token, "Moss", "cleric")

	w := s.admin(http.MethodPost, "/api/admin/ranking/refresh", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["characters"])

	w = s.admin(http.MethodPost, "/api/admin/announce", map[string]string{"message": "double gold weekend"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"double gold weekend"}, s.announce.msgs)

	assert.Equal(t, http.StatusBadRequest, s.admin(http.MethodPost, "/api/admin/announce", map[string]string{}).Code)
}

func TestAdmin_RewardBypassesOwnership(t *testing.T) {
	s := newServer(t)
	token, _ := s.register(t, "vera")
	charID := s.createCharacter(t, token, "Nyx", "mage")

	w := s.admin(http.MethodPost, "/api/admin/characters/"+charID+"/reward", map[string]int{"experience": 10, "gold": 5})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	ch := decode(t, w)["character"].(map[string]interface{})
	assert.Equal(t, float64(55), ch["gold"])

	w = s.admin(http.MethodGet, "/api/admin/audit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w), "logs")
}
