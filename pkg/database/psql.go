package database

import (
	"context"
	"fmt"
	"time"

	"video_transcode_service/pkg/logger"

	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"
)

// NewDatabaseConnection create a new postgresSQL pool
func NewDatabaseConnection(d Connection) (*pgxpool.Pool, error) {
	dbConfig, err := pgxpool.ParseConfig(d.ConnectStr)
	if err != nil {
		return nil, fmt.Errorf("parse pg config: %w", err)
	}

	var pool *pgxpool.Pool
	err = withRetry(d.RetryCount, d.RetryInterval, func(attempt int) error {
		var connErr error
		pool, connErr = pgxpool.ConnectConfig(context.Background(), dbConfig)
		if connErr != nil {
			logger.Log.Warn(
				"Failed to connect to postgreSQL pool, retrying...",
				zap.Int("attempt", attempt),
				zap.Error(connErr),
			)
		}
		return connErr
	})
	return pool, err
}

// NewPGConnection open a gorm postgres connection
func NewPGConnection(d Connection) (*gorm.DB, error) {
	var db *gorm.DB
	err := withRetry(d.RetryCount, d.RetryInterval, func(attempt int) error {
		var connErr error
		db, connErr = gorm.Open(postgres.Open(d.ConnectStr), &gorm.Config{
			Logger: gorm_logger.Default.LogMode(gorm_logger.Warn),
		})
		if connErr == nil {
			connErr = ping(db)
		}
		if connErr != nil {
			logger.Log.Warn(
				"Failed to connect to postgreSQL database, retrying...",
				zap.Int("attempt", attempt),
				zap.Error(connErr),
			)
		}
		return connErr
	})
	return db, err
}

// NewSQLiteConnection open a gorm sqlite database, ":memory:" is allowed
func NewSQLiteConnection(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gorm_logger.Default.LogMode(gorm_logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite[%s]: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// sqlite 只允許一個 writer
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}
