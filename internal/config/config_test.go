package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"MODE", "HTTP_ADDR", "DB_DRIVER", "SESSION_TTL", "REDIS_DB", "COOKIE_SECURE", "CORS_ORIGINS_OFFLINE"} {
		t.Setenv(k, "")
	}

	cfg := FromEnv()

	assert.Equal(t, ModeOffline, cfg.Mode)
	assert.Equal(t, ":5000", cfg.HTTPAddr)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 8*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.False(t, cfg.CookieSecure)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5000"}, cfg.CORSOrigins())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("MODE", "online")
	t.Setenv("SESSION_TTL", "90m")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("LEADERBOARD_TTL", "not-a-duration")
	t.Setenv("CORS_ORIGINS_ONLINE", " https://a.example , ,https://b.example")

	cfg := FromEnv()

	assert.Equal(t, ModeOnline, cfg.Mode)
	assert.Equal(t, 90*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 30*time.Second, cfg.LeaderboardTTL)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins())
}
