package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"planner/internal/config"
	"planner/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

const (
	maxConnectAttempts = 5
	connectRetryDelay  = 5 * time.Second
)

// Connect opens the Postgres database described by cfg, retrying while the
// server comes up, and runs migrations.
func Connect(cfg config.DatabaseConfig, debug bool) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	for i := 0; i < maxConnectAttempts; i++ {
		db, err = Open(postgres.Open(cfg.DSN()), debug)
		if err == nil {
			break
		}
		log.Printf("Database connection attempt %d failed: %v", i+1, err)
		if i < maxConnectAttempts-1 {
			log.Printf("Retrying in %v...", connectRetryDelay)
			time.Sleep(connectRetryDelay)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxConnectAttempts, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Println("Database connection established and migrations completed")
	return db, nil
}

// Open configures gorm over any dialector. debug logs every statement
// except the scheduler's polling queries.
func Open(dialector gorm.Dialector, debug bool) (*gorm.DB, error) {
	level := logger.Warn
	if debug {
		level = logger.Info
	}
	baseLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags|log.Lshortfile),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  debug,
		},
	)

	return gorm.Open(dialector, &gorm.Config{
		Logger: NewFilteredLogger(baseLogger, schedulerQueryPatterns...),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
}

// Migrate creates or updates every planner table
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Semester{},
		&models.Course{},
		&models.Assignment{},
		&models.RecurringTemplate{},
		&models.Notification{},
		&models.DigestMarker{},
		&models.UserPreferences{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
