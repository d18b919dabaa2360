package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("NOTIFY_TRANSPORT", "")

	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Empty(t, cfg.Database.URL, "no database means in-memory stores")
	assert.Equal(t, "log", cfg.Notify.Transport)
	assert.Equal(t, "filegov.notifications", cfg.Kafka.Topic)
	assert.Equal(t, 30*time.Second, cfg.Actors.TTL)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("FILEGOV_ADDR", ":9090")
	t.Setenv("DISPATCH_INTERVAL", "250ms")
	t.Setenv("ACTOR_CACHE_SIZE", "64")
	t.Setenv("NOTIFY_TRANSPORT", "kafka")

	cfg := FromEnv()

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 250*time.Millisecond, cfg.Notify.Interval)
	assert.Equal(t, 64, cfg.Actors.Size)
	assert.Equal(t, "kafka", cfg.Notify.Transport)
}

func TestMalformedValuesKeepDefaults(t *testing.T) {
	t.Setenv("DISPATCH_INTERVAL", "soon")
	t.Setenv("ACTOR_CACHE_SIZE", "many")

	cfg := FromEnv()

	assert.Equal(t, time.Second, cfg.Notify.Interval)
	assert.Equal(t, 1024, cfg.Actors.Size)
}
