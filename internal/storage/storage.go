// Package storage opens the store backend selected by configuration.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"campus_coffee/internal/domain"
	"campus_coffee/internal/shared"
	mysqlrepo "campus_coffee/internal/storage/mysql"
	"campus_coffee/internal/storage/sqlite"
)

type Backend struct {
	Store domain.Store
	// Migrate brings the schema up to date. migrationsDir is only read by MySQL.
	Migrate func(ctx context.Context, migrationsDir string) error
	Close   func() error
}

func Open(ctx context.Context, cfg shared.Config) (*Backend, error) {
	switch cfg.StoreDriver {
	case shared.DriverMySQL:
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, fmt.Errorf("sql.Open failed: %w", err)
		}
		db.SetMaxOpenConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)

		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("db.Ping failed: %w", err)
		}
		log.Info().Str("driver", cfg.StoreDriver).Msg("database connection ok")
		return &Backend{
			Store: mysqlrepo.New(db),
			Migrate: func(ctx context.Context, dir string) error {
				return mysqlrepo.ApplyMigrations(ctx, db, os.DirFS(dir))
			},
			Close: db.Close,
		}, nil

	case shared.DriverSQLite:
		s, err := sqlite.Open(sqlite.Config{Path: cfg.SQLitePath})
		if err != nil {
			return nil, err
		}
		log.Info().Str("driver", cfg.StoreDriver).Str("path", cfg.SQLitePath).Msg("database ready")
		return &Backend{
			Store:   s,
			Migrate: func(ctx context.Context, _ string) error { return s.Migrate(ctx) },
			Close:   s.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
