package migrations

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"storyForge/internal/config"
	"storyForge/internal/logger"
)

// Run применяет все новые миграции. Для sqlite схему создаёт AutoMigrate.
func Run(cfg *config.Cfg, log *logger.Zap) error {
	if cfg.Database.Driver == config.DriverSQLite {
		log.Debug("Миграции пропущены для sqlite")
		return nil
	}

	m, err := open(cfg)
	if err != nil {
		return err
	}
	defer closeMigrate(m, log)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("ошибка применения миграций: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return err
	}
	log.Info("Миграции применены", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// Down откатывает steps последних миграций.
func Down(cfg *config.Cfg, log *logger.Zap, steps int) error {
	if cfg.Database.Driver == config.DriverSQLite {
		return fmt.Errorf("откат миграций не поддерживается для sqlite")
	}
	if steps <= 0 {
		return fmt.Errorf("число шагов должно быть положительным, получено %d", steps)
	}

	m, err := open(cfg)
	if err != nil {
		return err
	}
	defer closeMigrate(m, log)

	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("ошибка отката миграций: %w", err)
	}
	log.Info("Миграции откачены", zap.Int("steps", steps))
	return nil
}

func open(cfg *config.Cfg) (*migrate.Migrate, error) {
	m, err := migrate.New(cfg.Migrations.Path, cfg.Database.URL())
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации миграций: %w", err)
	}
	return m, nil
}

func closeMigrate(m *migrate.Migrate, log *logger.Zap) {
	srcErr, dbErr := m.Close()
	if srcErr != nil {
		log.Warn("Ошибка закрытия источника миграций", zap.Error(srcErr))
	}
	if dbErr != nil {
		log.Warn("Ошибка закрытия БД миграций", zap.Error(dbErr))
	}
}
