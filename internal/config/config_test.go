package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 500*time.Millisecond, cfg.DocumentAlertDelay)
	assert.Equal(t, 6, cfg.PromotionCheckInterval)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.SchedulerEnabled)
	assert.Equal(t, "Europe/Rome", cfg.SchedulerTimezone.String())
}

func TestLoadPrefixedAlias(t *testing.T) {
	t.Setenv("BETFLOW_JWT_SECRET", testSecret)
	t.Setenv("BETFLOW_PORT", "9090")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"short secret":     {"JWT_SECRET": "short"},
		"bad duration":     {"JWT_SECRET": testSecret, "FX_CACHE_TTL": "soon"},
		"bad timezone":     {"JWT_SECRET": testSecret, "SCHEDULER_TIMEZONE": "Mars/Olympus"},
		"chat id missing":  {"JWT_SECRET": testSecret, "TELEGRAM_BOT_TOKEN": "123:abc"},
		"interval too big": {"JWT_SECRET": testSecret, "PROMOTION_CHECK_INTERVAL": "48"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
