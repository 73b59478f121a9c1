package rest_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRanking(t *testing.T) {
	s := newServer(t)
	token, _ := s.register(t, "quinn")
	low := s.createCharacter(t, token, "Juno", "warrior")
	high := s.createCharacter(t, token, "Kell", "mage")

	w := s.as(token, http.MethodPost, "/api/characters/"+high+"/reward", map[string]int{"experience": 300})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/ranking?limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rows := decode(t, w)["ranking"].([]interface{})
	require.Len(t, rows, 2)
	first := rows[0].(map[string]interface{})
	second := rows[1].(map[string]interface{})
	assert.Equal(t, high, first["character_id"])
	assert.Equal(t, float64(1), first["rank"])
	assert.Equal(t, low, second["character_id"])
}
