package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"storyForge/internal/config"
	"storyForge/internal/logger"
)

func TestRun_SkipsSQLite(t *testing.T) {
	cfg := &config.Cfg{Database: config.Database{Driver: config.DriverSQLite}}
	assert.NoError(t, Run(cfg, logger.Nop()))
	assert.Error(t, Down(cfg, logger.Nop(), 1))
}

func TestDown_RejectsNonPositiveSteps(t *testing.T) {
	cfg := &config.Cfg{Database: config.Database{Driver: config.DriverPostgres}}
	assert.Error(t, Down(cfg, logger.Nop(), 0))
}
