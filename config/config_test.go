package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SOURCES_DIR", filepath.Join(t.TempDir(), "missing"))
	t.Setenv("APP_ENV", "")
	t.Setenv("SCRAPE_SCHEDULER_ENABLED", "")
	t.Setenv("SCRAPE_CRON", "")
	t.Setenv("SCRAPE_MAX_RETRIES", "")
	t.Setenv("SCRAPE_RETRY_DELAY", "")
	t.Setenv("SCRAPE_STARTUP_DELAY", "")
	t.Setenv("STORE_DRIVER", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.False(t, cfg.Scheduler.Enabled)
	assert.Equal(t, DefaultCron, cfg.Scheduler.Cron)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.StartupDelay)
	assert.Equal(t, 3, cfg.Scraper.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.Scraper.RetryDelay)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Empty(t, cfg.Sources)
}

func TestLoad_SchedulerEnabledInProduction(t *testing.T) {
	t.Setenv("SOURCES_DIR", t.TempDir())
	t.Setenv("APP_ENV", "production")
	t.Setenv("SCRAPE_SCHEDULER_ENABLED", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Scheduler.Enabled)
}

func TestLoad_SchedulerExplicitOverride(t *testing.T) {
	t.Setenv("SOURCES_DIR", t.TempDir())
	t.Setenv("APP_ENV", "production")
	t.Setenv("SCRAPE_SCHEDULER_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Scheduler.Enabled)

	t.Setenv("APP_ENV", "development")
	t.Setenv("SCRAPE_SCHEDULER_ENABLED", "true")

	cfg, err = Load()
	require.NoError(t, err)
	assert.True(t, cfg.Scheduler.Enabled)
}

func TestLoad_SourceCatalog(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SOURCES_DIR", dir)

	writeSource(t, dir, "board.yaml", `
id: board
name: Board
handler: json
base_url: https://board.example.com
endpoints:
  - https://board.example.com/api/jobs?page=1
priority: 8
rate_limit:
  requests_per_minute: 30
  delay_between_requests_ms: 1500
tags: [eu, tech]
`)
	writeSource(t, dir, "sleepy.yml", `
id: sleepy
active: false
priority: 42
`)
	writeSource(t, dir, "notes.txt", "ignored")

	cfg, err := Load()
	require.NoError(t, err)
	require.Len(t, cfg.Sources, 2)
	assert.Equal(t, []string{"board", "sleepy"}, cfg.SourceIDs())

	board := cfg.Sources["board"]
	assert.True(t, board.IsActive())
	assert.Equal(t, 8, board.Priority)
	assert.Equal(t, 30, board.RateLimit.RequestsPerMinute)
	assert.Equal(t, 1500*time.Millisecond, board.RateLimit.Delay())

	src := board.ToSource()
	assert.Equal(t, "Board", src.Name)
	assert.Equal(t, []string{"eu", "tech"}, src.Tags)
	assert.Zero(t, src.ErrorCount)

	sleepy := cfg.Sources["sleepy"]
	assert.False(t, sleepy.IsActive())
	assert.Equal(t, "sleepy", sleepy.Name)
	assert.Equal(t, "json", sleepy.Handler)
	assert.Equal(t, 10, sleepy.Priority)
}

func TestLoad_RejectsSourceWithoutID(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SOURCES_DIR", dir)
	writeSource(t, dir, "bad.yaml", "name: nameless\n")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing id")
}

func TestLoad_RejectsDuplicateIDs(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SOURCES_DIR", dir)
	writeSource(t, dir, "a.yaml", "id: same\n")
	writeSource(t, dir, "b.yaml", "id: same\n")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}
