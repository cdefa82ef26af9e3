package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var keys = []string{
	"PORT", "STORE_DRIVER", "DATABASE_URL", "MONGODB_URI", "MONGODB_DATABASE",
	"STORE_TIMEOUT", "HEARTBEAT_INTERVAL", "WS_ORIGIN_PATTERNS", "LOG_LEVEL", "LOG_DIR",
	"FINISHED_SESSION_TTL", "FINISHED_SESSION_CACHE",
}

func clearEnv(t *testing.T) {
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, "shooting_gallery", cfg.MongoDatabase)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 30*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, []string{"*"}, cfg.OriginPatterns)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.LogDir)
	assert.Equal(t, time.Hour, cfg.FinishedSessionTTL)
	assert.Equal(t, 1024, cfg.FinishedSessionCache)
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "3000")
	t.Setenv("STORE_DRIVER", "Mongo")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("HEARTBEAT_INTERVAL", "10s")
	t.Setenv("WS_ORIGIN_PATTERNS", "localhost:3000, example.com ,")
	t.Setenv("FINISHED_SESSION_CACHE", "16")

	cfg := Load()

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, DriverMongo, cfg.StoreDriver)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.Equal(t, 10*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, []string{"localhost:3000", "example.com"}, cfg.OriginPatterns)
	assert.Equal(t, 16, cfg.FinishedSessionCache)
}

func TestLoad_DatabaseURLSelectsPostgres(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/shooting_gallery")

	cfg := Load()

	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, "postgres://localhost/shooting_gallery", cfg.DatabaseURL)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("HEARTBEAT_INTERVAL", "soon")
	t.Setenv("STORE_TIMEOUT", "-1s")
	t.Setenv("FINISHED_SESSION_CACHE", "abc")

	cfg := Load()

	assert.Equal(t, 30*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 1024, cfg.FinishedSessionCache)
}
