package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "http://localhost:9090", cfg.Server.PublicURL)
	require.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	require.Equal(t, 60*time.Second, cfg.Redis.CacheTTL)
	require.Equal(t, 5, cfg.Leads.MaxAttempts)
	require.False(t, cfg.UseMemoryStorage())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_DSN", "")
	t.Setenv("PUBLIC_URL", "https://academy.example/")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://academy.example, https://admin.academy.example,")
	t.Setenv("PAGE_CACHE_TTL", "5m")
	t.Setenv("LEAD_DISPATCH_BATCH", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	require.True(t, cfg.UseMemoryStorage())
	require.Equal(t, "https://academy.example", cfg.Server.PublicURL)
	require.Equal(t, []string{"https://academy.example", "https://admin.academy.example"}, cfg.Server.AllowedOrigins)
	require.Equal(t, 5*time.Minute, cfg.Redis.CacheTTL)
	require.Equal(t, 50, cfg.Leads.BatchSize)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		env    map[string]string
		wantOK bool
	}{
		{"bad port", map[string]string{"SERVER_PORT": "70000"}, false},
		{"bad webhook", map[string]string{"LEAD_WEBHOOK_URL": "ftp://hooks"}, false},
		{"https webhook", map[string]string{"LEAD_WEBHOOK_URL": "https://hooks.example/lead"}, true},
		{"bad log level", map[string]string{"LOG_LEVEL": "verbose"}, false},
		{"zero attempts", map[string]string{"LEAD_MAX_ATTEMPTS": "0"}, false},
		{"empty catalog", map[string]string{"CATALOG_DIR": ""}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if tt.wantOK {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, level)

	level, err = ParseLevel("")
	require.NoError(t, err)
	require.Equal(t, slog.LevelInfo, level)
}
