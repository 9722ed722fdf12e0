package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsAndOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ADDR", ":9999")
	t.Setenv("CORS_ORIGINS", " https://shop.example , ,https://admin.example")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "-4")
	t.Setenv("EVENTS_PING_INTERVAL", "5s")
	t.Setenv("LOG_SQL", "true")

	cfg := Load()
	require.Equal(t, ":9999", cfg.Addr)
	require.Equal(t, []string{"https://shop.example", "https://admin.example"}, cfg.CORSOrigins)
	require.Equal(t, 300, cfg.RateLimitPerMinute)
	require.Equal(t, 5*time.Second, cfg.EventsPingInterval)
	require.True(t, cfg.LogSQL)
	require.Equal(t, "e2e_records", cfg.NotifyChannel)
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("NOTIFY_CHANNEL=from_file\n"), 0o600))
	t.Chdir(dir)
	t.Setenv("NOTIFY_CHANNEL", "")
	os.Unsetenv("NOTIFY_CHANNEL")

	cfg := Load()
	require.Equal(t, "from_file", cfg.NotifyChannel)
	os.Unsetenv("NOTIFY_CHANNEL")
}

func TestSQLiteDetection(t *testing.T) {
	require.True(t, Config{DatabaseURL: "sqlite:/tmp/shop.db"}.UsesSQLite())
	require.Equal(t, "/tmp/shop.db", Config{DatabaseURL: "sqlite:/tmp/shop.db"}.SQLitePath())
	require.False(t, Config{DatabaseURL: "postgres://x"}.UsesSQLite())
}
