package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "VTI", cfg.DefaultRoundUpSymbol)
	assert.Equal(t, 5*time.Second, cfg.LookupTimeout)
	assert.Equal(t, 3, cfg.UnitOfWorkAttempts)
	assert.Equal(t, "static", cfg.PriceSource)
	assert.False(t, cfg.Backup.Enabled())
	assert.Equal(t, 30, cfg.Backup.RetentionDays)
	assert.Equal(t, "0 0 22 * * *", cfg.Schedules.Snapshot)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("PORT", "9001")
	t.Setenv("DEFAULT_ROUND_UP_SYMBOL", "spy")
	t.Setenv("LOOKUP_TIMEOUT", "750ms")
	t.Setenv("PRICE_SOURCE", "http")
	t.Setenv("QUOTE_API_URL", "http://quotes.local")
	t.Setenv("BACKUP_BUCKET", "backups")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Port)
	assert.Equal(t, "SPY", cfg.DefaultRoundUpSymbol)
	assert.Equal(t, 750*time.Millisecond, cfg.LookupTimeout)
	assert.Equal(t, "http", cfg.PriceSource)
	assert.True(t, cfg.Backup.Enabled())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:                 8080,
			DefaultRoundUpSymbol: "VTI",
			LookupTimeout:        time.Second,
			UnitOfWorkAttempts:   3,
			PriceSource:          "static",
			Backup:               &BackupConfig{},
		}
	}

	testCases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.Port = 0 }, "invalid PORT"},
		{"zero timeout", func(c *Config) { c.LookupTimeout = 0 }, "LOOKUP_TIMEOUT"},
		{"zero attempts", func(c *Config) { c.UnitOfWorkAttempts = 0 }, "UOW_MAX_ATTEMPTS"},
		{"http without url", func(c *Config) { c.PriceSource = "http" }, "QUOTE_API_URL"},
		{"unknown source", func(c *Config) { c.PriceSource = "bloomberg" }, "unsupported PRICE_SOURCE"},
		{"half credentials", func(c *Config) {
			c.Backup = &BackupConfig{Bucket: "b", AccessKeyID: "id"}
		}, "must be set together"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
