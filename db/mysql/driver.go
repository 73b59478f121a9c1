// Package mysql opens the MySQL-backed store used by multi-node deployments.
package mysql

import (
	"context"
	"fmt"
	"strings"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Pool sizes the connection pool. Zero fields fall back to the defaults below.
type Pool struct {
	MaxOpen int
	MaxIdle int
	MaxLife time.Duration
}

const (
	defaultMaxOpen = 50
	defaultMaxIdle = 10
	defaultMaxLife = time.Hour
)

// NormalizeDSN forces the session settings the models rely on: timestamps
// scan into time.Time in UTC and names use the full utf8mb4 range.
func NormalizeDSN(dsn string) (string, error) {
	cfg, err := gomysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	if !strings.Contains(dsn, "charset=") {
		if cfg.Params == nil {
			cfg.Params = map[string]string{}
		}
		cfg.Params["charset"] = "utf8mb4"
	}
	return cfg.FormatDSN(), nil
}

// Open connects, sizes the pool and pings the server before returning.
func Open(ctx context.Context, dsn string, pool Pool) (*gorm.DB, error) {
	dsn, err := NormalizeDSN(dsn)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if pool.MaxOpen <= 0 {
		pool.MaxOpen = defaultMaxOpen
	}
	if pool.MaxIdle <= 0 {
		pool.MaxIdle = defaultMaxIdle
	}
	if pool.MaxLife <= 0 {
		pool.MaxLife = defaultMaxLife
	}
	sqlDB.SetMaxOpenConns(pool.MaxOpen)
	sqlDB.SetMaxIdleConns(pool.MaxIdle)
	sqlDB.SetConnMaxLifetime(pool.MaxLife)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("mysql ping: %w", err)
	}
	return db, nil
}
