package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// chdirTemp moves the test into an empty directory so no config.yaml or .env is found.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, int32(10), cfg.Store.MaxConns)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.InDelta(t, 20.0, cfg.Server.RateLimit, 0.001)
	assert.Equal(t, 40, cfg.Server.RateBurst)
	assert.InDelta(t, 50.0, cfg.Search.DefaultRadiusMiles, 0.001)
	assert.InDelta(t, 500.0, cfg.Search.MaxRadiusMiles, 0.001)
	assert.Equal(t, 300, cfg.Search.DebounceMs)
	assert.Equal(t, 15, cfg.Search.TimeoutSecs)
	assert.Equal(t, 60, cfg.Search.SessionTTLMinutes)
	assert.Equal(t, 5, cfg.Breaker.FailureThreshold)
	assert.Equal(t, 30, cfg.Breaker.ResetTimeoutSecs)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
  database_url: locations.db
log:
  level: debug
  format: console
server:
  port: 9090
search:
  debounce_ms: 150
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "locations.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 150, cfg.Search.DebounceMs)
	// Defaults still apply for unset values
	assert.InDelta(t, 50.0, cfg.Search.DefaultRadiusMiles, 0.001)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("LOCBUILDER_STORE_DRIVER", "postgres")
	t.Setenv("LOCBUILDER_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	t.Setenv("LOCBUILDER_SEARCH_DEBOUNCE_MS", "")
	require.NoError(t, os.Unsetenv("LOCBUILDER_SEARCH_DEBOUNCE_MS"))
	t.Cleanup(func() { os.Unsetenv("LOCBUILDER_SEARCH_DEBOUNCE_MS") })

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LOCBUILDER_SEARCH_DEBOUNCE_MS=450\n"), 0644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 450, cfg.Search.DebounceMs)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "postgres"
	cfg.Store.DatabaseURL = "postgres://localhost/locations"
	cfg.Server.Port = 8080
	cfg.Search.DefaultRadiusMiles = 50
	cfg.Search.MaxRadiusMiles = 500
	cfg.Search.DebounceMs = 300
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("serve"))
	assert.NoError(t, validDefaults().Validate("search"))
}

func TestValidate_PostgresRequiresURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.DatabaseURL = ""

	err := cfg.Validate("search")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
}

func TestValidate_SQLiteWithoutURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = ""

	assert.NoError(t, cfg.Validate("search"))
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"

	err := cfg.Validate("search")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `store.driver must be postgres or sqlite, got "mysql"`)
}

func TestValidate_SearchSettings(t *testing.T) {
	cfg := validDefaults()
	cfg.Search.DebounceMs = 0
	cfg.Search.MaxRadiusMiles = 10

	err := cfg.Validate("search")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search.debounce_ms must be positive")
	assert.Contains(t, err.Error(), "search.max_radius_miles")
}

func TestValidate_UnlimitedRadius(t *testing.T) {
	cfg := validDefaults()
	cfg.Search.MaxRadiusMiles = 0

	assert.NoError(t, cfg.Validate("search"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")

	// Port is only checked for serve.
	assert.NoError(t, cfg.Validate("search"))
}
