package database

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"carmarket/internal/domain/entity"
	"carmarket/pkg/config"
	"carmarket/pkg/logger"
)

// Connect opens the relational store selected by STORE_DRIVER.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		dialector = postgres.Open(cfg.DatabaseDSN)
	case config.StoreDriverMySQL:
		dialector = mysql.Open(cfg.DatabaseDSN)
	case config.StoreDriverSQLite:
		dialector = sqlite.Open(cfg.DatabaseDSN)
	default:
		return nil, fmt.Errorf("store driver %q is not relational", cfg.StoreDriver)
	}

	logLevel := gormlogger.Warn
	if cfg.IsProduction() {
		logLevel = gormlogger.Error
	}

	db, err := Open(dialector, logLevel)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.StoreDriver == config.StoreDriverSQLite {
		// one writer avoids "database is locked" under concurrent sends
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	logger.Info("Connected to %s store", cfg.StoreDriver)
	return db, nil
}

// Open wraps gorm.Open with the settings every repository relies on:
// driver errors translated to gorm.ErrDuplicatedKey and UTC timestamps.
func Open(dialector gorm.Dialector, logLevel gormlogger.LogLevel) (*gorm.DB, error) {
	return gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(logLevel),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
}

// Migrate creates the chat core tables. withDirectory also migrates the
// listings and users tables, which are normally owned by the catalogue and
// account services.
func Migrate(db *gorm.DB, withDirectory bool) error {
	models := []interface{}{
		&entity.Chat{},
		&entity.Message{},
		&entity.Notification{},
		&entity.PriceAlert{},
	}
	if withDirectory {
		models = append(models, &entity.Listing{}, &entity.User{})
	}
	return db.AutoMigrate(models...)
}
