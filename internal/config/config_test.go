package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Hunters.MaxPerUser)
	assert.Equal(t, 5, cfg.Leveling.StatPointsPerLevel)
	assert.Equal(t, 5, cfg.Leveling.SkillPointsPerLevel)
	assert.True(t, cfg.Leveling.RestoreOnLevelUp)
	assert.Equal(t, 2*time.Hour, cfg.Gates.TTL)
	assert.Equal(t, 3, cfg.Gates.MinDepth)
	assert.Equal(t, 6, cfg.Gates.MaxDepth)
	assert.Equal(t, 3, cfg.Gates.MinRooms)
	assert.Equal(t, 6, cfg.Gates.MaxRooms)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, 5*time.Second, cfg.Database.QueryTimeout)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
bot:
  token: "abc"
admin:
  ids: [7, 9]
gates:
  ttl: 30m
  max_rooms: 4
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	t.Setenv("DATABASE_HOST", "db.internal")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "abc", cfg.Bot.Token)
	assert.Equal(t, 30*time.Minute, cfg.Gates.TTL)
	assert.Equal(t, 4, cfg.Gates.MaxRooms)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.True(t, cfg.IsAdmin(9))
	assert.False(t, cfg.IsAdmin(8))
}

func TestLoad_InvalidRange(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("gates:\n  min_depth: 5\n  max_depth: 2\n"), 0o600))

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestIsChatAllowed(t *testing.T) {
	cfg := &Config{}
	assert.True(t, cfg.IsChatAllowed(1), "empty whitelist allows everything")

	cfg.Whitelist.Chats = []int64{-100}
	assert.True(t, cfg.IsChatAllowed(-100))
	assert.False(t, cfg.IsChatAllowed(1))
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "h", Port: 5433, User: "u", Password: "p", Name: "n"}
	assert.Equal(t, "postgres://u:p@h:5433/n?sslmode=disable", d.DSN())
}
