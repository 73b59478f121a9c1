package middleware_test

import (
	"testing"
	"time"

	"github.com/duskhollow/server/middleware"
	"github.com/duskhollow/server/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	tok, err := middleware.GenerateToken("user-42", model.RoleUser, "secret", time.Hour)
	require.NoError(t, err)

	claims, err := middleware.ParseToken(tok, "secret")
	require.NoError(t, err)
	assert.Equal(t, "user-42", claims.UserID)
	assert.Equal(t, model.RoleUser, claims.Role)
	assert.Equal(t, "user-42", claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestGenerateToken_Unique(t *testing.T) {
	a, err := middleware.GenerateToken("u", model.RoleUser, "secret", time.Hour)
	require.NoError(t, err)
	b, err := middleware.GenerateToken("u", model.RoleUser, "secret", time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestParseToken_WrongSecret(t *testing.T) {
	tok, err := middleware.GenerateToken("u", model.RoleUser, "secret", time.Hour)
	require.NoError(t, err)
	_, err = middleware.ParseToken(tok, "other")
	assert.Error(t, err)
}

func TestParseToken_Expired(t *testing.T) {
	tok, err := middleware.GenerateToken("u", model.RoleUser, "secret", -time.Minute)
	require.NoError(t, err)
	_, err = middleware.ParseToken(tok, "secret")
	assert.Error(t, err)
}
