package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "annotations.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, int32(4), cfg.Database.MaxConns)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
database:
  host: db.internal
  port: 6432
  user: catalog
  password: secret
  name: annotations
  max_conns: 8
log:
  level: warn
  format: json
`)
	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6432, cfg.Database.Port)
	assert.Equal(t, "catalog", cfg.Database.User)
	assert.Equal(t, int32(8), cfg.Database.MaxConns)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	rc := cfg.Database.Runtime("commerce")
	assert.Equal(t, "annotations", rc.Database)
	assert.Equal(t, "commerce", rc.Namespace)
	assert.Equal(t, int32(8), rc.MaxConns)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ANNOTATIONS_DATABASE_NAME=from_dotenv\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("ANNOTATIONS_DATABASE_NAME") })

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "from_dotenv", cfg.Database.Name)
}

func TestPrecedence(t *testing.T) {
	path := writeConfig(t, "log:\n  level: warn\ndatabase:\n  url: postgres://file@localhost/a\n")
	t.Setenv("ANNOTATIONS_LOG_LEVEL", "error")
	t.Setenv("ANNOTATIONS_DATABASE_URL", "postgres://env@localhost/b")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("db", "", "")
	flags.String("log-level", "info", "")
	flags.String("log-format", "console", "")

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level, "env beats file")
	assert.Equal(t, "console", cfg.Log.Format, "unset flag keeps the default")
	assert.Equal(t, "postgres://env@localhost/b", cfg.Database.URL)

	require.NoError(t, flags.Set("log-level", "debug"))
	require.NoError(t, flags.Set("db", "postgres://flag@localhost/c"))
	cfg, err = Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level, "flag beats env")
	assert.Equal(t, "postgres://flag@localhost/c", cfg.Database.URL)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"unknown log format", "log:\n  format: xml\n", "Format"},
		{"unknown log level", "log:\n  level: loud\n", "Level"},
		{"bad port", "database:\n  port: 70000\n", "Port"},
		{"bad sslmode", "database:\n  sslmode: sometimes\n", "SSLMode"},
		{"malformed yaml", "log: [\n", "failed to read config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
}
