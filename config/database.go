package config

import (
	"fmt"
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormConfig returns the gorm settings shared by every dialector.
func GormConfig(cfg *Config) *gorm.Config {
	// In production, suppress SQL logs unless explicitly re-enabled via DEBUG_SQL=true.
	logLevel := logger.Info
	if cfg.IsProduction() && !cfg.DebugSQL {
		logLevel = logger.Warn
	}

	return &gorm.Config{
		TranslateError: true,
		Logger: logger.New(
			log.New(LogWriter, "\r\n", log.LstdFlags),
			logger.Config{LogLevel: logLevel},
		),
	}
}

// Dialector picks the gorm driver for DB_DRIVER.
func Dialector(db DatabaseConfig) (gorm.Dialector, error) {
	switch db.Driver {
	case DriverMySQL, "":
		return mysql.Open(db.DSN()), nil
	case DriverPostgres:
		return postgres.Open(db.DSN()), nil
	case DriverSQLite:
		return sqlite.Open(db.DSN()), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", db.Driver)
	}
}

// OpenDB connects using the database section of cfg.
func OpenDB(cfg *Config) (*gorm.DB, error) {
	dialector, err := Dialector(cfg.DB)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, GormConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	log.Printf("Database connected successfully (%s)", dialector.Name())
	return db, nil
}
