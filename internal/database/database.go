package database

import (
	"fmt"
	"log"
	"time"

	"taskzen/backend/internal/config"
	"taskzen/backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PoolConfig controls the sql.DB connection pool behind gorm.
type PoolConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	LogLevel        logger.LogLevel
}

func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: time.Minute * 30,
		LogLevel:        logger.Info,
	}
}

// NewDatabasePool opens a postgres connection with the pool limits applied.
// A nil config falls back to DefaultPoolConfig, which carries no DSN and
// therefore fails fast.
func NewDatabasePool(cfg *PoolConfig) (*gorm.DB, error) {
	if cfg == nil {
		cfg = DefaultPoolConfig()
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger:         logger.Default.LogMode(cfg.LogLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

// Connect builds a pool from the application config and migrates the schema.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	poolCfg := DefaultPoolConfig()
	poolCfg.DSN = cfg.GetDatabaseDSN()
	if cfg.IsProduction() {
		poolCfg.LogLevel = logger.Warn
	}

	db, err := NewDatabasePool(poolCfg)
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Printf("Connected to database %s on %s", cfg.Database.Name, cfg.Database.Host)
	return db, nil
}

// Migrate keeps the schema in step with the model definitions.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Task{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
