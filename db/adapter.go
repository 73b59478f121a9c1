package db

import (
	"context"
	"fmt"

	"github.com/duskhollow/server/config"
	dbmysql "github.com/duskhollow/server/db/mysql"
	dbsqlite "github.com/duskhollow/server/db/sqlite"
	"github.com/duskhollow/server/model"
	"github.com/duskhollow/server/store"
	"github.com/duskhollow/server/store/gormstore"
	"github.com/duskhollow/server/store/mongostore"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ModeSQLite       = "sqlite"
	ModeSQLiteMemory = "sqlite_memory"
	ModeMySQL        = "mysql"
	ModeMongo        = "mongo"
)

// Open returns a migrated store.Store for the configured database mode.
func Open(ctx context.Context, cfg config.DatabaseConfig) (store.Store, error) {
	if cfg.Mode == ModeMongo {
		if cfg.MongoTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.MongoTimeout)
			defer cancel()
		}
		return mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	}

	gdb, err := openGorm(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := model.AutoMigrate(gdb); err != nil {
		return nil, fmt.Errorf("db: migrate: %w", err)
	}
	return gormstore.New(gdb), nil
}

func openGorm(ctx context.Context, cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Mode {
	case ModeSQLite:
		return dbsqlite.Open(cfg.SQLitePath)
	case ModeSQLiteMemory:
		return dbsqlite.OpenMemory(uuid.NewString())
	case ModeMySQL:
		return dbmysql.Open(ctx, cfg.MySQLDSN, dbmysql.Pool{
			MaxOpen: cfg.MySQLMaxOpen,
			MaxIdle: cfg.MySQLMaxIdle,
			MaxLife: cfg.MySQLMaxLife,
		})
	default:
		return nil, fmt.Errorf("db: unknown mode %q", cfg.Mode)
	}
}
