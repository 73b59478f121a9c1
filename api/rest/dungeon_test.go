package rest_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startDungeon(t *testing.T, s *server, token, charID string) string {
	t.Helper()
	w := s.as(token, http.MethodPost, "/api/characters/"+charID+"/dungeons", map[string]string{"difficulty": "easy"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)["dungeon"].(map[string]interface{})["id"].(string)
}

func TestDungeonLifecycle(t *testing.T) {
	s := newServer(t)
	token, _ := s.register(t, "mona")
	charID := s.createCharacter(t, token, "Gale", "warrior")
	id := startDungeon(t, s, token, charID)

	w := s.as(token, http.MethodPost, "/api/characters/"+charID+"/dungeons", map[string]string{"difficulty": "easy"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.as(token, http.MethodGet, "/api/characters/"+charID+"/dungeons/active", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, decode(t, w)["dungeon"].(map[string]interface{})["id"])

	// Treasure room: gold plus one item waiting to be picked up.
	s.dice.Set(70, 5, 0)
	w = s.as(token, http.MethodPost, "/api/dungeons/"+id+"/advance", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	adv := decode(t, w)
	assert.Equal(t, "treasure", adv["room"])
	assert.NotNil(t, adv["item"])

	w = s.as(token, http.MethodPost, "/api/dungeons/"+id+"/loot", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	d := decode(t, w)["dungeon"].(map[string]interface{})
	assert.Len(t, d["temp_inventory"], 1)

	w = s.as(token, http.MethodPost, "/api/dungeons/"+id+"/combat", map[string]string{"action": "attack"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.as(token, http.MethodPost, "/api/dungeons/"+id+"/trap", map[string]string{"action": "disarm"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.as(token, http.MethodPost, "/api/dungeons/"+id+"/complete", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.as(token, http.MethodPost, "/api/dungeons/"+id+"/forfeit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	d = decode(t, w)["dungeon"].(map[string]interface{})
	assert.Equal(t, "forfeited", d["state"])
	assert.Equal(t, false, d["active"])

	w = s.as(token, http.MethodPost, "/api/dungeons/"+id+"/forfeit", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.as(token, http.MethodGet, "/api/characters/"+charID+"/dungeons/active", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.as(token, http.MethodGet, "/api/characters/"+charID+"/dungeons", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["dungeons"], 1)

	// Forfeited loot never reaches the character.
	w = s.as(token, http.MethodGet, "/api/characters/"+charID+"/items", nil)
	assert.Len(t, decode(t, w)["items"], 1)
}

func TestDungeon_Validation(t *testing.T) {
	s := newServer(t)
	token, _ := s.register(t, "nell")
	charID := s.createCharacter(t, token, "Hale", "mage")

	w := s.as(token, http.MethodPost, "/api/characters/"+charID+"/dungeons", map[string]string{"difficulty": "nightmare"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	id := startDungeon(t, s, token, charID)
	w = s.as(token, http.MethodPost, "/api/dungeons/"+id+"/combat", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.as(token, http.MethodPost, "/api/dungeons/"+id+"/loot", map[string][]int{"indices": {3}})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.as(token, http.MethodGet, "/api/dungeons/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDungeonStart_BodyWithoutContentLength(t *testing.T) {
	s := newServer(t)
	token, _ := s.register(t, "orla")
	chunked := s.createCharacter(t, token, "Wren", "rogue")
	empty := s.createCharacter(t, token, "Tamsin", "warrior")

	req := httptest.NewRequest(http.MethodPost, "/api/characters/"+chunked+"/dungeons",
		strings.NewReader(`{"difficulty":"easy"}`))
	req.ContentLength = -1
	req.TransferEncoding = []string{"chunked"}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "easy", decode(t, w)["dungeon"].(map[string]interface{})["difficulty"])

	w = s.as(token, http.MethodPost, "/api/characters/"+empty+"/dungeons", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "normal", decode(t, w)["dungeon"].(map[string]interface{})["difficulty"])
}

func TestDungeon_Ownership(t *testing.T) {
	s := newServer(t)
	owner, _ := s.register(t, "olga")
	other, _ := s.register(t, "pete")
	charID := s.createCharacter(t, owner, "Iris", "rogue")
	id := startDungeon(t, s, owner, charID)

	for _, path := range []string{"advance", "forfeit", "complete", "loot"} {
		w := s.as(other, http.MethodPost, "/api/dungeons/"+id+"/"+path, nil)
		assert.Equal(t, http.StatusForbidden, w.Code, path)
	}
	assert.Equal(t, http.StatusForbidden, s.as(other, http.MethodGet, "/api/dungeons/"+id, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.as(other, http.MethodGet, "/api/characters/"+charID+"/dungeons", nil).Code)

	// The run is untouched.
	w := s.as(owner, http.MethodGet, "/api/dungeons/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["dungeon"].(map[string]interface{})["stage"])
}
