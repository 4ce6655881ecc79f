package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "CORS_ORIGINS", "HISTORY_LIMIT", "DB_QUERY_TIMEOUT", "MODEL_PATH", "WEBHOOK_URLS", "REDIS_ENABLED"} {
		t.Setenv(key, "")
	}

	cfg := LoadFromEnv()

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.CORSOrigins)
	assert.Equal(t, 30, cfg.Database.HistoryLimit)
	assert.Equal(t, 5*time.Second, cfg.Database.QueryTimeout)
	assert.Equal(t, "./models/harvest_model.yaml", cfg.ModelPath)
	assert.Empty(t, cfg.WebhookURLs)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Run("numbers and durations", func(t *testing.T) {
		t.Setenv("PORT", "9090")
		t.Setenv("HISTORY_LIMIT", "10")
		t.Setenv("DB_QUERY_TIMEOUT", "1500ms")

		cfg := LoadFromEnv()

		assert.Equal(t, 9090, cfg.Port)
		assert.Equal(t, 10, cfg.Database.HistoryLimit)
		assert.Equal(t, 1500*time.Millisecond, cfg.Database.QueryTimeout)
	})

	t.Run("invalid values fall back", func(t *testing.T) {
		t.Setenv("PORT", "not-a-port")
		t.Setenv("DB_QUERY_TIMEOUT", "soon")

		cfg := LoadFromEnv()

		assert.Equal(t, 8000, cfg.Port)
		assert.Equal(t, 5*time.Second, cfg.Database.QueryTimeout)
	})

	t.Run("lists are trimmed", func(t *testing.T) {
		t.Setenv("WEBHOOK_URLS", " http://a.example/hook , ,http://b.example/hook")

		cfg := LoadFromEnv()

		assert.Equal(t, []string{"http://a.example/hook", "http://b.example/hook"}, cfg.WebhookURLs)
	})
}

func TestDSN(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: "5433", User: "u", Password: "p", Name: "berries", SSLMode: "require"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=berries sslmode=require", db.DSN())
}

func TestMaxUploadBytes(t *testing.T) {
	assert.Equal(t, int64(5<<20), (&Config{MaxUploadMB: 5}).MaxUploadBytes())
	assert.Equal(t, int64(32<<20), (&Config{}).MaxUploadBytes())
}
