package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "csv", cfg.Dataset.Driver)
	assert.Equal(t, "data/consolidated.csv", cfg.Dataset.Path)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http_addr: ":9090"
workers: 4
reference:
  units: ref/units.csv
  courts: ref/courts.csv
dataset:
  driver: postgres
  postgres_dsn: postgres://localhost/pricebot
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "ref/units.csv", cfg.Reference.UnitsPath)
	assert.Equal(t, "postgres", cfg.Dataset.Driver)
	assert.Equal(t, "postgres://localhost/pricebot", cfg.Dataset.PostgresDSN)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PRICEBOT_HTTP_ADDR", ":7070")
	t.Setenv("PRICEBOT_WORKERS", "8")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.HTTPAddr)
	assert.Equal(t, 8, cfg.Workers)
}

func TestValidation(t *testing.T) {
	t.Setenv("PRICEBOT_DATASET_DRIVER", "sqlite")
	_, err := Load("")
	assert.Error(t, err)
}

func TestPostgresRequiresDSN(t *testing.T) {
	t.Setenv("PRICEBOT_DATASET_DRIVER", "postgres")
	_, err := Load("")
	assert.Error(t, err)
}
