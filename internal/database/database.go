package database

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"storyForge/internal/config"
	"storyForge/internal/logger"
)

type Database struct {
	DB *gorm.DB
}

// New подключается к базе из конфигурации. Для sqlite схема создаётся
// через AutoMigrate, для postgres её ведут миграции.
func New(cfg *config.Cfg, log *logger.Zap) (*Database, error) {
	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.Database.Path)
	case config.DriverPostgres, "":
		dialector = postgres.Open(cfg.Database.DSN())
	default:
		return nil, fmt.Errorf("неизвестный драйвер БД %q", cfg.Database.Driver)
	}

	db, err := Open(dialector)
	if err != nil {
		return nil, err
	}
	if cfg.Database.Driver == config.DriverSQLite {
		if err := db.AutoMigrate(); err != nil {
			return nil, err
		}
	}

	log.Info("Подключение к БД установлено", zap.String("driver", db.DB.Dialector.Name()))
	return db, nil
}

func Open(dialector gorm.Dialector) (*Database, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}
	return &Database{DB: db}, nil
}

func (d *Database) AutoMigrate() error {
	if err := d.DB.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("ошибка автомиграции: %w", err)
	}
	return nil
}

func (d *Database) Close(log *logger.Zap) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		log.Error("Не удалось получить соединение БД", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Error("Ошибка закрытия БД", zap.Error(err))
	}
}
