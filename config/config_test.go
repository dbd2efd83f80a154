package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.Server.Addr)
	require.Equal(t, StorageMemory, cfg.Storage.Driver)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, 16.0, cfg.Tree.Size)
	require.Equal(t, 1.0, cfg.Tree.MinCellSize)
	require.Equal(t, 1, cfg.Tree.Capacity)
	require.Equal(t, 100*time.Millisecond, cfg.Search.Timeout)
	require.Equal(t, 10.0, cfg.Search.HeuristicWeight)
	require.Equal(t, uint(12), cfg.Search.GeohashPrecision)
	require.Equal(t, 10*time.Minute, cfg.Redis.TTL)
	require.False(t, cfg.Redis.Enabled)
	require.Equal(t, "file://database/migrations", cfg.Migrations.Path)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quadnav.yaml")
	err := os.WriteFile(path, []byte(`
server:
  addr: ":9090"
storage:
  driver: postgres
db:
  host: db
  dbname: maps
redis:
  enabled: true
  ttl: 30s
search:
  timeout: 250ms
  heuristic_weight: 1.5
tree:
  size: 64
`), 0o600)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.Server.Addr)
	require.Equal(t, StoragePostgres, cfg.Storage.Driver)
	require.Equal(t, "db", cfg.DB.Host)
	require.Equal(t, "5432", cfg.DB.Port)
	require.True(t, cfg.Redis.Enabled)
	require.Equal(t, 30*time.Second, cfg.Redis.TTL)
	require.Equal(t, 250*time.Millisecond, cfg.Search.Timeout)
	require.Equal(t, 1.5, cfg.Search.HeuristicWeight)
	require.Equal(t, 64.0, cfg.Tree.Size)
	require.Equal(t, 1.0, cfg.Tree.MinCellSize)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("QUADNAV_SERVER_ADDR", ":7070")
	t.Setenv("QUADNAV_REDIS_ADDR", "cache:6379")
	t.Setenv("QUADNAV_SEARCH_MAX_EXPANSIONS", "500")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ":7070", cfg.Server.Addr)
	require.Equal(t, "cache:6379", cfg.Redis.Addr)
	require.Equal(t, 500, cfg.Search.MaxExpansions)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	t.Setenv("QUADNAV_STORAGE_DRIVER", "sqlite")
	_, err = Load("")
	require.Error(t, err)
}

func TestDBConfigConnectionStrings(t *testing.T) {
	c := DBConfig{
		User:     "u",
		Password: "p",
		DBName:   "maps",
		SSLMode:  "disable",
		Host:     "db",
		Port:     "5432",
	}

	require.Equal(t, "host=db port=5432 user=u password=p dbname=maps sslmode=disable", c.DSN())
	require.Equal(t, "postgres://u:p@db:5432/maps?sslmode=disable", c.URL())
}
