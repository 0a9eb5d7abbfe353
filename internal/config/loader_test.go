package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
server:
  port: 8081
  mode: release
database:
  host: db.internal
  user: sentinel
  db_name: sentinel
redis:
  addr: cache.internal:6379
kafka:
  brokers: ["broker-1:9092"]
  group_id: sentinel-import
embedding:
  provider: hash
  dimension: 128
engine:
  top_k: 7
  known_brands: ["Apple", "Dyson"]
  expected_prices:
    apple: 999
log:
  level: debug
  format: console
`

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ValidFile(t *testing.T) {
	path := writeTempConfig(t, validConfigYAML)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "cache.internal:6379", cfg.Redis.Addr)
	assert.Equal(t, 128, cfg.Embedding.Dimension)
	assert.Equal(t, 7, cfg.Engine.TopK)
	assert.Equal(t, []string{"Apple", "Dyson"}, cfg.Engine.KnownBrands)
	assert.InDelta(t, 999.0, cfg.Engine.ExpectedPrices["apple"], 1e-9)

	// Unset sections fall back to defaults.
	assert.Equal(t, DefaultDBPort, cfg.Database.Port)
	assert.Equal(t, DefaultPriceWeight, cfg.Engine.PriceWeight)
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidConfigFailsValidation(t *testing.T) {
	path := writeTempConfig(t, "server:\n  mode: production\n")
	_, err := Load(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoadFromEnv_EnvOverrides(t *testing.T) {
	t.Setenv("SENTINEL_DATABASE_USER", "envuser")
	t.Setenv("SENTINEL_DATABASE_HOST", "envhost")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "envuser", cfg.Database.User)
	assert.Equal(t, "envhost", cfg.Database.Host)
}

func TestMustLoad_PanicsOnMissingFile(t *testing.T) {
	assert.Panics(t, func() {
		MustLoad(filepath.Join(t.TempDir(), "missing.yaml"))
	})
}
