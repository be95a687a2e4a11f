package database

import (
	"fmt"

	"fact-check-api/internal/models"
	"fact-check-api/pkg/logging"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the database and runs migrations. PostgreSQL is used
// when databaseURL is set; otherwise a local SQLite file keeps development
// working without external services.
func Open(databaseURL string) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	// Table names come from the models' TableName methods.
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	if databaseURL == "" {
		logging.Infof("DATABASE_URL not set, using SQLite for development")
		db, err = gorm.Open(sqlite.Open("fact-check-api.db"), gormConfig)
	} else {
		db, err = gorm.Open(postgres.Open(databaseURL), gormConfig)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logging.Infof("Database connected successfully")
	return db, nil
}

// Migrate creates or updates the ledger tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.DeviceUsage{},
		&models.TokenGrant{},
		&models.PaymentTransaction{},
	)
}
