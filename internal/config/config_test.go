package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// no config file, no .env
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:38471", cfg.App.Addr)
	assert.Equal(t, 20, cfg.Pipeline.Workers)
	assert.Equal(t, 500*time.Millisecond, cfg.Pipeline.BackoffInitial)
	assert.Equal(t, 5, cfg.History.Limit)
	assert.Len(t, cfg.Catalog.Categories, 20)
	assert.Len(t, cfg.Catalog.Locations, 30)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "config.yml")
	yml := `
app:
  addr: 0.0.0.0:9000
log:
  level: debug
  format: json
pipeline:
  workers: 8
  backoff_initial: 250ms
fetch:
  timeout: 3s
  requests_per_second: 0.5
store:
  driver: postgres
  dsn: postgres://localhost/leads
catalog:
  locations:
    - Sudbury, ON
    - Wawa, ON
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.App.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8, cfg.Pipeline.Workers)
	assert.Equal(t, 250*time.Millisecond, cfg.Pipeline.BackoffInitial)
	assert.Equal(t, 8*time.Second, cfg.Pipeline.BackoffMax, "unset keys keep defaults")
	assert.Equal(t, 3*time.Second, cfg.Fetch.Timeout)
	assert.InDelta(t, 0.5, cfg.Fetch.RequestsPerSecond, 0.001)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, []string{"Sudbury, ON", "Wawa, ON"}, cfg.Catalog.Locations)
	assert.Len(t, cfg.Catalog.Categories, 20)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("NORTHSCRAPE_PIPELINE_WORKERS", "7")
	t.Setenv("NORTHSCRAPE_RESOLVER_TIMEOUT", "2s")
	t.Setenv("NORTHSCRAPE_APP_DATA_DIR", "/var/lib/northscrape")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Pipeline.Workers)
	assert.Equal(t, 2*time.Second, cfg.Resolver.Timeout)
	assert.Equal(t, "/var/lib/northscrape", cfg.App.DataDir)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("NORTHSCRAPE_HISTORY_LIMIT=9\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("NORTHSCRAPE_HISTORY_LIMIT") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.History.Limit)
}

func TestNormalizeAndValidate_Defaults(t *testing.T) {
	out, v := NormalizeAndValidate(Default())
	assert.True(t, v.OK(), v.Errors)
	assert.Empty(t, v.Warnings)
	assert.Equal(t, Default(), out)
}

func TestNormalizeAndValidate_Errors(t *testing.T) {
	cfg := Default()
	cfg.App.Addr = "nope"
	cfg.Log.Level = "loud"
	cfg.Pipeline.Workers = 0
	cfg.Directory.BaseURL = "ftp://example.com"
	cfg.Store.Driver = "postgres"
	cfg.Store.DSN = ""

	_, v := NormalizeAndValidate(cfg)
	assert.False(t, v.OK())
	assert.Len(t, v.Errors, 5)
	assert.Contains(t, v.Error(), "store.dsn is required")
}

func TestNormalizeAndValidate_NormalizesLists(t *testing.T) {
	cfg := Default()
	cfg.Catalog.Locations = []string{" Sudbury, ON ", "sudbury, on", "", "Wawa, ON"}
	cfg.Resolver.Blocklist = []string{"Yelp.com", "yelp.com"}
	cfg.Pipeline.BackoffMax = time.Millisecond
	cfg.Fetch.Burst = 0

	out, v := NormalizeAndValidate(cfg)
	assert.True(t, v.OK(), v.Errors)
	assert.Equal(t, []string{"Sudbury, ON", "Wawa, ON"}, out.Catalog.Locations)
	assert.Equal(t, []string{"yelp.com"}, out.Resolver.Blocklist)
	assert.Equal(t, out.Pipeline.BackoffInitial, out.Pipeline.BackoffMax)
	assert.Equal(t, 1, out.Fetch.Burst)
	assert.NotEmpty(t, v.Warnings)
}

func TestSaveAtomic_RoundTripAndBackup(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "conf", "config.yml")

	cfg := Default()
	cfg.Pipeline.Workers = 11
	require.NoError(t, SaveAtomic(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	cfg.Pipeline.Workers = 12
	require.NoError(t, SaveAtomic(path, cfg))
	_, err = os.Stat(path + ".bak")
	assert.NoError(t, err)

	bad := Default()
	bad.History.Limit = 0
	err = SaveAtomic(path, bad)
	require.Error(t, err)
	got, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12, got.Pipeline.Workers, "invalid config is never written")
}

func TestEnsureUserConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	dataDir := filepath.Join(t.TempDir(), "data")

	path, err := EnsureUserConfig(dataDir, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dataDir, "config.yml"), path)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, dataDir, cfg.App.DataDir)

	// existing file is left alone
	require.NoError(t, os.WriteFile(path, []byte("history:\n  limit: 3\n"), 0o644))
	again, err := EnsureUserConfig(dataDir, "")
	require.NoError(t, err)
	assert.Equal(t, path, again)
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.History.Limit)
}

func TestEnsureUserConfig_CopiesShippedDefault(t *testing.T) {
	dir := t.TempDir()
	shipped := filepath.Join(dir, "default.yml")
	require.NoError(t, os.WriteFile(shipped, []byte("pipeline:\n  workers: 4\n"), 0o644))

	path, err := EnsureUserConfig(filepath.Join(dir, "data"), shipped)
	require.NoError(t, err)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "pipeline:\n  workers: 4\n", string(b))
}

func TestInitLogger(t *testing.T) {
	t.Cleanup(func() { zap.ReplaceGlobals(zap.NewNop()) })

	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))
	assert.False(t, zap.L().Core().Enabled(zap.InfoLevel))
	assert.True(t, zap.L().Core().Enabled(zap.WarnLevel))

	assert.Error(t, InitLogger(LogConfig{Level: "loud", Format: "console"}))
}
