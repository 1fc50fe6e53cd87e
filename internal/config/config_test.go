package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TYPING_TTL", "")
	cfg, _ := Load()

	assert.Equal(t, 10*time.Second, cfg.Chat.TypingTTL)
	assert.Equal(t, 50, cfg.Chat.HistoryDefaultLimit)
	assert.Equal(t, 100, cfg.Chat.HistoryMaxLimit)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TYPING_TTL", "0")
	t.Setenv("TYPING_SWEEP_INTERVAL", "2s")
	t.Setenv("HISTORY_MAX_LIMIT", "20")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, _ := Load()

	assert.Equal(t, time.Duration(0), cfg.Chat.TypingTTL)
	assert.Equal(t, 2*time.Second, cfg.Chat.TypingSweepInterval)
	assert.Equal(t, 20, cfg.Chat.HistoryMaxLimit)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestDurationFallbackOnGarbage(t *testing.T) {
	t.Setenv("PROFILE_CACHE_TTL", "soon")
	cfg, _ := Load()
	assert.Equal(t, 5*time.Minute, cfg.Auth.ProfileCacheTTL)
}
