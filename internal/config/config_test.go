package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("CONTEXT_TOTAL_BUDGET", "")
	t.Setenv("RATE_LIMIT_REFILL", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 3000, cfg.Context.TotalBudget)
	assert.Equal(t, 8000, cfg.Context.PromptBudget)
	assert.Equal(t, 1000, cfg.Context.ResponseReserve)
	assert.Equal(t, time.Minute, cfg.RateLimit.RefillPer)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", "/tmp/story.db")
	t.Setenv("RATE_LIMIT_CAPACITY", "5")
	t.Setenv("RATE_LIMIT_REFILL", "30s")
	t.Setenv("CONTEXT_TOTAL_BUDGET", "не число")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "/tmp/story.db", cfg.Database.Path)
	assert.Equal(t, 5, cfg.RateLimit.Capacity)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.RefillPer)
	assert.Equal(t, 3000, cfg.Context.TotalBudget)
}

func TestLoad_UnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")
	_, err := Load()
	assert.Error(t, err)
}

func TestDatabase_DSNAndURL(t *testing.T) {
	d := Database{Host: "db", Port: "5432", Name: "story", User: "ana", Password: "p@ss", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=ana password=p@ss dbname=story sslmode=disable", d.DSN())
	assert.Equal(t, "postgres://ana:p%40ss@db:5432/story?sslmode=disable", d.URL())
}

func TestEnvBool(t *testing.T) {
	t.Setenv("FLAG", "Yes")
	assert.True(t, envBool("FLAG"))
	t.Setenv("FLAG", "0")
	assert.False(t, envBool("FLAG"))
}
