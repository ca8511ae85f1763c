package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosarica/coupon-planner/internal/optimizer"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Server.MaxConcurrentPlans)
	assert.Equal(t, 8, cfg.Server.MaxWorkers)
	assert.Equal(t, 50, cfg.Server.MaxTopK)
	assert.Equal(t, optimizer.Defaults(), cfg.Planner)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, 5, cfg.Feed.CircuitBreaker.MaxFailures)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "planner.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 8080
planner:
  iterations: 500
  time_budget: 2s
  strategy: uniform
  evaluation_order: percent_first
cache:
  ttl: 1m
`), 0o644))

	t.Setenv("COUPON_PLANNER_PLANNER_WORKERS", "3")
	t.Setenv("DATABASE_URL", "postgres://localhost/coupons")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 500, cfg.Planner.Iterations)
	assert.Equal(t, 2*time.Second, cfg.Planner.TimeBudget)
	assert.Equal(t, optimizer.StrategyUniform, cfg.Planner.Strategy)
	assert.Equal(t, optimizer.PercentFirst, cfg.Planner.EvaluationOrder)
	assert.Equal(t, 3, cfg.Planner.Workers)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "postgres://localhost/coupons", cfg.Database.URL)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PORT=9090\n"), 0o644))
	t.Setenv("PORT", "")
	os.Unsetenv("PORT")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoadRejectsInvalidPlanner(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("COUPON_PLANNER_PLANNER_TOP_K", "0")

	_, err := Load("")
	require.Error(t, err)

	var ic optimizer.ErrInvalidConfig
	assert.ErrorAs(t, err, &ic)
	assert.Equal(t, "top_k", ic.Field)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load("does-not-exist.yaml")
	assert.Error(t, err)
}
