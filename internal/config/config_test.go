package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ahmednader515/alkian/internal/config"
)

type testConfig struct {
	HTTP struct {
		Port int32
	}

	Database struct {
		Driver string
		DSN    string
	}

	Redis struct {
		Cache struct {
			Addrs []string
			TTL   time.Duration
		}
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
http:
  port: 8080
database:
  driver: sqlite
  dsn: file:from-file.db
redis:
  cache:
    addrs: ["localhost:6379"]
    ttl: 30s
`), 0o600))

	t.Setenv("DATABASE_DSN", "file:alkian.db")

	var c testConfig
	c.Database.Driver = "postgres"
	c.Redis.Cache.TTL = time.Minute
	c.HTTP.Port = 9000

	require.NoError(t, config.Load(file, &c))

	require.EqualValues(t, 8080, c.HTTP.Port, "file should override defaults")
	require.Equal(t, "sqlite", c.Database.Driver, "file should override defaults")
	require.Equal(t, "file:alkian.db", c.Database.DSN, "env should override the file")
	require.Equal(t, []string{"localhost:6379"}, c.Redis.Cache.Addrs)
	require.Equal(t, 30*time.Second, c.Redis.Cache.TTL)
}

func TestLoad_MissingFile(t *testing.T) {
	var c testConfig
	require.Error(t, config.Load(filepath.Join(t.TempDir(), "nope.yaml"), &c))
}
