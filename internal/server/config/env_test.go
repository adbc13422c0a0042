package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_parseEnv(t *testing.T) {

	t.Run("overlays recognized variables", func(t *testing.T) {
		t.Setenv("ADDRESS", "127.0.0.1:9000")
		t.Setenv("DATABASE_DSN", "postgres://env")
		t.Setenv("SECRET_KEY", "env_secret")
		t.Setenv("DEFAULT_QUOTA_BYTES", "2048")
		t.Setenv("REAP_INTERVAL", "30m")
		t.Setenv("RETENTION", "48h")
		t.Setenv("IN_MEMORY", "true")
		t.Setenv("S3_BUCKET", "attachments")

		cfg := &Config{}
		cfg.LoadDefaults()
		parseEnv(cfg)

		assert.Equal(t, "127.0.0.1:9000", cfg.EndpointAddr)
		assert.Equal(t, "postgres://env", cfg.DatabaseDSN)
		assert.Equal(t, "env_secret", cfg.SecretKey)
		assert.Equal(t, int64(2048), cfg.DefaultQuotaBytes)
		assert.Equal(t, 30*time.Minute, cfg.ReapInterval)
		assert.Equal(t, 48*time.Hour, cfg.Retention)
		assert.True(t, cfg.InMemory)
		assert.Equal(t, "attachments", cfg.S3Bucket)
	})

	t.Run("malformed values keep previous", func(t *testing.T) {
		t.Setenv("DEFAULT_QUOTA_BYTES", "lots")
		t.Setenv("REAP_INTERVAL", "soon")
		t.Setenv("IN_MEMORY", "maybe")

		cfg := &Config{}
		cfg.LoadDefaults()
		parseEnv(cfg)

		assert.Equal(t, int64(1<<30), cfg.DefaultQuotaBytes)
		assert.Equal(t, 1*time.Hour, cfg.ReapInterval)
		assert.False(t, cfg.InMemory)
	})
}
