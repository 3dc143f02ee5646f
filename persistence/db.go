// Package persistence opens the bun database for the configured driver and
// applies the embedded goose migrations.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"

	"github.com/goliatone/go-accounts"
)

// Options configures Open
type Options struct {
	Driver string
	DSN    string
	// Debug logs every query through bundebug
	Debug           bool
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to the database described by opts and pings it.
func Open(ctx context.Context, opts Options) (*bun.DB, error) {
	var db *bun.DB

	switch opts.Driver {
	case accounts.DialectSQLite:
		sqldb, err := sql.Open(sqliteshim.ShimName, opts.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// every connection to an in memory database sees its own data
		// unless the pool is pinned to one
		if isMemoryDSN(opts.DSN) {
			sqldb.SetMaxOpenConns(1)
		}
		db = bun.NewDB(sqldb, sqlitedialect.New())
	case accounts.DialectPostgres:
		sqldb, err := sql.Open("pgx", opts.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	if opts.MaxOpenConns > 0 && !isMemoryDSN(opts.DSN) {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if opts.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	db.RegisterModel(accounts.Models()...)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", opts.Driver, err)
	}

	return db, nil
}

// Migrate applies every pending migration for driver and logs each one.
func Migrate(ctx context.Context, db *bun.DB, driver string, logger accounts.Logger) error {
	fsys, err := accounts.MigrationsFor(driver)
	if err != nil {
		return err
	}

	var dialect goose.Dialect
	switch driver {
	case accounts.DialectSQLite:
		dialect = goose.DialectSQLite3
	case accounts.DialectPostgres:
		dialect = goose.DialectPostgres
	}

	provider, err := goose.NewProvider(dialect, db.DB, fsys)
	if err != nil {
		return fmt.Errorf("migrations provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	for _, r := range results {
		if logger != nil && r.Source != nil {
			logger.Info("applied migration", "version", r.Source.Version, "path", r.Source.Path, "duration", r.Duration)
		}
	}

	return nil
}

// OpenAndMigrate is Open followed by Migrate
func OpenAndMigrate(ctx context.Context, opts Options, logger accounts.Logger) (*bun.DB, error) {
	db, err := Open(ctx, opts)
	if err != nil {
		return nil, err
	}

	if err := Migrate(ctx, db, opts.Driver, logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func isMemoryDSN(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}
