package rest_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCharacterCRUD(t *testing.T) {
	s := newServer(t)
	token, _ := s.register(t, "gwen")
	id := s.createCharacter(t, token, "Aria", "warrior")

	w := s.as(token, http.MethodGet, "/api/characters", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["characters"], 1)

	w = s.as(token, http.MethodGet, "/api/characters/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	sheet := decode(t, w)["character"].(map[string]interface{})
	assert.Equal(t, "Aria", sheet["name"])
	assert.Equal(t, float64(1), sheet["level"])
	assert.NotNil(t, sheet["weapon"])

	w = s.as(token, http.MethodGet, "/api/characters/"+id+"/items", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["items"], 1)

	w = s.as(token, http.MethodDelete, "/api/characters/"+id, map[string]string{"password": "nope"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.as(token, http.MethodDelete, "/api/characters/"+id, map[string]string{"password": "hunter22"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.as(token, http.MethodGet, "/api/characters/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not found", decode(t, w)["error"])
}

func TestCreateCharacter_Rejections(t *testing.T) {
	s := newServer(t)
	token, _ := s.register(t, "hank")

	w := s.as(token, http.MethodPost, "/api/characters", map[string]string{"name": "Zed", "class": "bard"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.as(token, http.MethodPost, "/api/characters", map[string]string{"name": "Zed"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	s.createCharacter(t, token, "Zed", "mage")
	w = s.as(token, http.MethodPost, "/api/characters", map[string]string{"name": "Zed", "class": "mage"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	s.createCharacter(t, token, "Ysolde", "cleric")
	w = s.as(token, http.MethodPost, "/api/characters", map[string]string{"name": "Xan", "class": "rogue"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCharacter_Ownership(t *testing.T) {
	s := newServer(t)
	owner, _ := s.register(t, "owner")
	other, _ := s.register(t, "other")
	id := s.createCharacter(t, owner, "Brann", "warrior")

	for _, tc := range []struct {
		method, path string
		body         interface{}
	}{
		{http.MethodGet, "/api/characters/" + id, nil},
		{http.MethodPost, "/api/characters/" + id + "/reward", map[string]int{"experience": 10}},
		{http.MethodPost, "/api/characters/" + id + "/heal", nil},
		{http.MethodPost, "/api/characters/" + id + "/labor", map[string]int{"hours": 1}},
		{http.MethodPost, "/api/characters/" + id + "/dungeons", map[string]string{"difficulty": "easy"}},
	} {
		w := s.as(other, tc.method, tc.path, tc.body)
		assert.Equal(t, http.StatusForbidden, w.Code, tc.path)
	}
}

func TestReward(t *testing.T) {
	s := newServer(t)
	token, _ := s.register(t, "ivy")
	id := s.createCharacter(t, token, "Corin", "rogue")

	w := s.as(token, http.MethodPost, "/api/characters/"+id+"/reward", map[string]int{"experience": -5, "gold": 10})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.as(token, http.MethodPost, "/api/characters/"+id+"/reward", map[string]int{"experience": 150, "gold": 10})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	ch := body["character"].(map[string]interface{})
	assert.Equal(t, float64(2), ch["level"])
	assert.Equal(t, float64(50), ch["experience"])
	assert.Equal(t, float64(60), ch["gold"])
}

func TestHeal(t *testing.T) {
	s := newServer(t)
	token, _ := s.register(t, "jack")
	id := s.createCharacter(t, token, "Dara", "cleric")

	w := s.as(token, http.MethodPost, "/api/characters/"+id+"/heal", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLaborRoutes(t *testing.T) {
	s := newServer(t)
	token, _ := s.register(t, "kate")
	id := s.createCharacter(t, token, "Edda", "warrior")

	w := s.as(token, http.MethodPost, "/api/characters/"+id+"/labor", map[string]int{"hours": 99})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.as(token, http.MethodPost, "/api/characters/"+id+"/labor", map[string]int{"hours": 2})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, s.sched.PendingDelays())

	w = s.as(token, http.MethodPost, "/api/characters/"+id+"/labor/collect", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.as(token, http.MethodPost, "/api/characters/"+id+"/dungeons", map[string]string{"difficulty": "easy"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.as(token, http.MethodGet, "/api/characters/"+id+"/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	st := decode(t, w)["status"].(map[string]interface{})
	assert.Equal(t, "labor", st["activity"])

	w = s.as(token, http.MethodPost, "/api/characters/"+id+"/labor/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, s.sched.PendingDelays())
}

func TestPortrait_Disabled(t *testing.T) {
	s := newServer(t)
	token, _ := s.register(t, "liam")
	id := s.createCharacter(t, token, "Fen", "mage")

	w := s.as(token, http.MethodPost, "/api/characters/"+id+"/image", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
