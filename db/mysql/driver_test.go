package mysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDSNAddsSessionSettings(t *testing.T) {
	dsn, err := NormalizeDSN("dusk:secret@tcp(127.0.0.1:3306)/duskhollow")
	require.NoError(t, err)
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")
}

func TestNormalizeDSNKeepsExplicitCharset(t *testing.T) {
	dsn, err := NormalizeDSN("dusk:secret@tcp(127.0.0.1:3306)/duskhollow?charset=utf8")
	require.NoError(t, err)
	assert.Contains(t, dsn, "charset=utf8")
	assert.NotContains(t, dsn, "utf8mb4")
}

func TestNormalizeDSNRejectsGarbage(t *testing.T) {
	_, err := NormalizeDSN("not a dsn")
	assert.Error(t, err)
}
