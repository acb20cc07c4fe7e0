package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// isolate keeps the developer's own carwizard.yaml out of the test.
func isolate(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv(ConfigPathEnvVar, "")
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0", cfg.Server.Host)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "carwizard.db", cfg.DB.Path)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "http", cfg.Transport.Mode)
	require.Equal(t, []string{"*"}, cfg.Transport.CORSOrigins)
	require.True(t, cfg.Catalog.BreakerEnabled)
	require.Equal(t, uint32(5), cfg.Catalog.FailureThreshold)
	require.Equal(t, 15*time.Second, cfg.Catalog.OpenTimeout)
	require.Equal(t, 100, cfg.Recommend.MaxLimit)
	require.Equal(t, time.Minute, cfg.RateLimit.Window)
}

func TestLoad_FileThenEnv(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
db:
  path: /tmp/wizard.db
log:
  level: debug
catalog:
  seed_path: catalog.yaml
  open_timeout: 30s
transport:
  cors_origins: [https://wizard.example]
`), 0o600))
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("CARWIZARD_SERVER_PORT", "9191")
	t.Setenv("CARWIZARD_TRANSPORT_MODE", "stdio")
	t.Setenv("CARWIZARD_AUTH_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 9191, cfg.Server.Port)
	require.Equal(t, "/tmp/wizard.db", cfg.DB.Path)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "stdio", cfg.Transport.Mode)
	require.True(t, cfg.Auth.Enabled)
	require.Equal(t, "catalog.yaml", cfg.Catalog.SeedPath)
	require.Equal(t, 30*time.Second, cfg.Catalog.OpenTimeout)
	require.Equal(t, []string{"https://wizard.example"}, cfg.Transport.CORSOrigins)
}

func TestLoad_EnvSlice(t *testing.T) {
	isolate(t)
	t.Setenv("CARWIZARD_CORS_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Transport.CORSOrigins)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_InvalidEnv(t *testing.T) {
	isolate(t)
	t.Setenv("CARWIZARD_TRANSPORT_MODE", "grpc")

	_, err := Load()
	require.ErrorContains(t, err, "transport.mode")
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	require.NoError(t, cfg.Validate())

	bad := defaultConfig()
	bad.Server.Port = 0
	bad.Log.Level = "trace"
	bad.Recommend.DefaultLimit = 500
	err := bad.Validate()
	require.ErrorContains(t, err, "server.port")
	require.ErrorContains(t, err, "log.level")
	require.ErrorContains(t, err, "default_limit")
}

func TestEnvTransformFunc(t *testing.T) {
	require.Equal(t, "db.path", envTransformFunc("CARWIZARD_DB_PATH"))
	require.Equal(t, "", envTransformFunc("CARWIZARD_UNKNOWN"))
}
