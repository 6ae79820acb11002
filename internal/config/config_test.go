package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseYAML = `
server:
  port: ":8080"
db:
  host: postgres
  port: 5432
  password: ${DB_PASSWORD}
jwt:
  secret: ${JWT_SECRET}
  ttl: 2h
`

func writeConfig(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	return dir
}

func TestLoadFrom(t *testing.T) {
	dir := writeConfig(t, map[string]string{
		"base.yaml":   baseYAML,
		"local.yaml":  "db:\n  host: localhost\n",
		"secrets.env": "DB_PASSWORD=from-secrets\nJWT_SECRET=s3cret\n",
	})
	t.Setenv("DB_PASSWORD", "")
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("DB_PASSWORD")
	os.Unsetenv("JWT_SECRET")

	cfg, err := LoadFrom("local", dir)
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.DB.Host)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.Equal(t, "from-secrets", cfg.DB.Password)
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.Equal(t, 2*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoadFrom_EnvOverrides(t *testing.T) {
	dir := writeConfig(t, map[string]string{"base.yaml": baseYAML})
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("SERVER_PORT", ":9090")

	cfg, err := LoadFrom("production", dir)
	require.NoError(t, err)
	assert.Equal(t, "env-secret", cfg.JWT.Secret)
	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Equal(t, ":9090", cfg.Server.Port)
}

func TestLoadFrom_RequiresSecret(t *testing.T) {
	dir := writeConfig(t, map[string]string{"base.yaml": "jwt:\n  ttl: 1h\n"})
	t.Setenv("JWT_SECRET", "")

	_, err := LoadFrom("local", dir)
	assert.Error(t, err)
}
