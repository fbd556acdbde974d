package config

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
)

func TestLoadSQLiteDefaults(t *testing.T) {
    t.Setenv("JWT_SECRET", "s3cret")
    t.Setenv("DB_DRIVER", "sqlite")
    t.Setenv("SQLITE_PATH", "/tmp/p.db")

    cfg := Load()
    assert.Equal(t, "sqlite", cfg.DBDriver)
    assert.Equal(t, "/tmp/p.db", cfg.SQLitePath)
    assert.Equal(t, "8080", cfg.Port)
    assert.Equal(t, 15, cfg.AccessTTLMin)
    assert.Equal(t, 7, cfg.RefreshTTLDays)
    assert.Equal(t, "admin", cfg.AdminUsername)
    assert.Empty(t, cfg.DBUser)
}

func TestLoadMySQL(t *testing.T) {
    t.Setenv("JWT_SECRET", "s3cret")
    t.Setenv("DB_DRIVER", "mysql")
    t.Setenv("DB_USER", "parking")
    t.Setenv("DB_HOST", "db")
    t.Setenv("DB_PORT", "3306")
    t.Setenv("DB_NAME", "parking")
    t.Setenv("BCRYPT_COST", "10")

    cfg := Load()
    assert.Equal(t, "db", cfg.DBHost)
    assert.Equal(t, 10, cfg.BcryptCost)
}

func TestLoadRateLimitConfigClamps(t *testing.T) {
    t.Setenv("RATE_LIMIT_CAPACITY", "0")
    t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
    t.Setenv("RATE_LIMIT_TTL", "1s")

    cfg := LoadRateLimitConfig()
    assert.Equal(t, 1, cfg.Capacity)
    assert.Equal(t, 1, cfg.RefillTokens)
    assert.Equal(t, 2*time.Second, cfg.RefillInterval)
    assert.Equal(t, 10*time.Second, cfg.TTL)

    t.Setenv("RATE_LIMIT_BURST", "20")
    assert.Equal(t, 20, LoadRateLimitConfig().Capacity)
}

func TestLoadCacheConfig(t *testing.T) {
    t.Setenv("CACHE_METHODS", "get, head")
    t.Setenv("CACHE_ENABLED", "off")

    cfg := LoadCacheConfig()
    assert.False(t, cfg.Enabled)
    assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, cfg.Methods)
    assert.Equal(t, time.Minute, cfg.TTL)
    assert.Equal(t, "path_query", cfg.KeyStrategy)
}

func TestLoadQueueConfig(t *testing.T) {
    t.Setenv("RABBITMQ_URL", "")
    t.Setenv("AMQP_URL", "amqp://u:p@mq:5672/")
    t.Setenv("QUEUE_PUBLISH_ENABLED", "true")

    cfg := LoadQueueConfig()
    assert.Equal(t, "amqp://u:p@mq:5672/", cfg.URL)
    assert.True(t, cfg.PublishEnabled)
    assert.False(t, cfg.ConsumerEnabled)
    assert.Equal(t, "logs", cfg.LogDir)
}
