package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchbet/ingestion/internal/models"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_PASSWORD", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.DatabaseHost)
	assert.Equal(t, 5432, cfg.DatabasePort)
	assert.Equal(t, "tr.ml-row:nth-of-type(n+8) td", cfg.ScrapeSelector)
	assert.Equal(t, 3, cfg.ScrapeMaxRetries)
	assert.Equal(t, 8*time.Hour, cfg.TargetUTCOffset)
	assert.Equal(t, models.StageSwiss, cfg.Stage())
	assert.Equal(t, models.BO5, cfg.BestOf())
	assert.False(t, cfg.RefreshPendingOdds)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "localhost:6379", cfg.RedisAddr())

	r := cfg.Rating()
	assert.Equal(t, 1500.0, r.Baseline)
	assert.Equal(t, 16.0, r.KFactor)
	assert.Equal(t, 18.0, r.Scale)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_PASSWORD", "secret")
	t.Setenv("DEFAULT_STAGE", "knockout")
	t.Setenv("DEFAULT_BEST_OF", "3")
	t.Setenv("ELO_K_FACTOR", "32")
	t.Setenv("TARGET_UTC_OFFSET", "-5h30m")
	t.Setenv("APP_ENV", "production")
	t.Setenv("REDIS_HOST", "redis")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, "redis:6379", cfg.RedisAddr())

	assert.Equal(t, models.StageKnockout, cfg.Stage())
	assert.Equal(t, models.BO3, cfg.BestOf())
	assert.Equal(t, 32.0, cfg.Rating().KFactor)

	loc := cfg.TargetLocation()
	_, offset := time.Date(2023, 11, 2, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, -(5*3600 + 30*60), offset)
	assert.Equal(t, "UTC-05:30", loc.String())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			DatabasePassword: "secret",
			EloBaseline:      1500,
			EloKFactor:       16,
			PRScale:          18,
			DefaultStage:     "swiss",
			DefaultBestOf:    5,
			TargetUTCOffset:  8 * time.Hour,
			ScrapeMaxRetries: 3,
			RunLockTTL:       time.Minute,
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing password", func(c *Config) { c.DatabasePassword = "" }},
		{"zero scale", func(c *Config) { c.PRScale = 0 }},
		{"unknown stage", func(c *Config) { c.DefaultStage = "groups" }},
		{"even best-of", func(c *Config) { c.DefaultBestOf = 2 }},
		{"offset too large", func(c *Config) { c.TargetUTCOffset = 15 * time.Hour }},
		{"offset with seconds", func(c *Config) { c.TargetUTCOffset = time.Hour + time.Second }},
		{"negative retries", func(c *Config) { c.ScrapeMaxRetries = -1 }},
		{"zero lock ttl", func(c *Config) { c.RunLockTTL = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
