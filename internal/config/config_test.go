package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the user config dir at an empty temp dir
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	// Empty values count as unset
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REPE_DATABASE_URL", "")
	t.Setenv("REPE_API_PORT", "")
	return dir
}

func TestDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.API.Host)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, 9090, cfg.Web.Port)
	assert.Equal(t, "web", cfg.Web.Dir)
	assert.Equal(t, "http://localhost:8080", cfg.Client.APIURL)
	assert.False(t, cfg.API.RequireAuth)
	assert.ErrorIs(t, cfg.Validate(), ErrMissingDatabaseURL)
}

func TestPrecedence(t *testing.T) {
	dir := isolate(t)

	path := filepath.Join(dir, "repe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database_url: sqlite://from-file.db
api:
  port: 7000
  require_auth: true
web:
  dir: static
`), 0o644))

	v := New()
	cmd := &cobra.Command{}
	cmd.Flags().Int("port", 0, "")
	require.NoError(t, v.BindPFlag(KeyAPIPort, cmd.Flags().Lookup("port")))

	cfg, err := Load(v, path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.API.Port, "file over default")
	assert.True(t, cfg.API.RequireAuth)
	assert.Equal(t, "static", cfg.Web.Dir)
	assert.Equal(t, "sqlite://from-file.db", cfg.DatabaseURL)

	t.Setenv("REPE_API_PORT", "7100")
	t.Setenv("DATABASE_URL", "postgres://repe@localhost/repe")
	cfg, err = Load(v, path)
	require.NoError(t, err)
	assert.Equal(t, 7100, cfg.API.Port, "env over file")
	assert.Equal(t, "postgres://repe@localhost/repe", cfg.DatabaseURL)

	t.Setenv("REPE_DATABASE_URL", "sqlite://prefixed.db")
	require.NoError(t, cmd.Flags().Set("port", "7200"))
	cfg, err = Load(v, path)
	require.NoError(t, err)
	assert.Equal(t, 7200, cfg.API.Port, "flag over env")
	assert.Equal(t, "sqlite://prefixed.db", cfg.DatabaseURL)
}

func TestExplicitConfigFileMustExist(t *testing.T) {
	dir := isolate(t)

	_, err := Load(New(), filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestEnvFile(t *testing.T) {
	dir := isolate(t)

	// Restored to unset when the test ends
	t.Setenv("REPE_WEB_DIR", "")
	require.NoError(t, os.Unsetenv("REPE_WEB_DIR"))

	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("REPE_WEB_DIR=/srv/repe\n"), 0o644))

	cfg, err := Load(New(), "", envFile)
	require.NoError(t, err)
	assert.Equal(t, "/srv/repe", cfg.Web.Dir)

	_, err = Load(New(), "", filepath.Join(dir, "absent.env"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			DatabaseURL: "sqlite://repe.db",
			API:         APIConfig{Host: "localhost", Port: 8080},
			Web:         WebConfig{Port: 9090},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"valid", func(*Config) {}, nil},
		{"missing database", func(c *Config) { c.DatabaseURL = "" }, ErrMissingDatabaseURL},
		{"api port zero", func(c *Config) { c.API.Port = 0 }, ErrInvalidPort},
		{"web port ignored when disabled", func(c *Config) { c.Web.Port = 70000 }, nil},
		{"web port checked when enabled", func(c *Config) { c.Web.Enabled = true; c.Web.Port = 70000 }, ErrInvalidPort},
		{"pid lock without path", func(c *Config) { c.PID.Lock = true }, ErrPIDLockWithoutPath},
		{"short secret", func(c *Config) { c.JWTSecret = "short" }, ErrWeakJWTSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSecrets(t *testing.T) {
	cfg := Config{}
	_, err := cfg.SharedSecret()
	assert.ErrorIs(t, err, ErrMissingJWTSecret)

	random, err := cfg.Secret()
	require.NoError(t, err)
	assert.Len(t, random, minJWTSecretLen)

	cfg.Dev = true
	secret, err := cfg.SharedSecret()
	require.NoError(t, err)
	assert.Equal(t, devJWTSecret, string(secret))

	cfg.JWTSecret = "configured-secret-at-least-32-bytes!!"
	secret, err = cfg.Secret()
	require.NoError(t, err)
	assert.Equal(t, cfg.JWTSecret, string(secret))
}
