package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "security:\n  jwt_secret: s\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Mode)
	assert.Equal(t, 3, cfg.Game.MaxCharacters)
	assert.Equal(t, time.Hour, cfg.Game.LaborUnit)
	assert.Equal(t, 24*time.Hour, cfg.Game.StaleDungeonAfter)
	assert.Equal(t, 72*time.Hour, cfg.Security.JWTTTLH)
	assert.Equal(t, "dall-e-3", cfg.ImageGen.Model)
	assert.Empty(t, cfg.ImageGen.APIKey)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
  admin_ips: ["127.0.0.1", "10.0.0.0/8"]
game:
  labor_unit: 30m
  temp_inventory_size: 5
`)
	t.Setenv("DUSK_SERVER_PORT", "9100")
	t.Setenv("DUSK_IMAGEGEN_API_KEY", "sk-test")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, []string{"127.0.0.1", "10.0.0.0/8"}, cfg.Server.AdminIPs)
	assert.Equal(t, 30*time.Minute, cfg.Game.LaborUnit)
	assert.Equal(t, 5, cfg.Game.TempInventorySize)
	assert.Equal(t, "sk-test", cfg.ImageGen.APIKey)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_ExampleFile(t *testing.T) {
	cfg, err := Load("config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "change-me", cfg.Security.JWTSecret)
	assert.Equal(t, 5*time.Minute, cfg.Game.RankingRefresh)
}
