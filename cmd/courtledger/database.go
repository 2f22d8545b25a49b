package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/courtledger/internal/store/gormstore"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	dialectPostgres = "postgres"
	dialectSQLite   = "sqlite"

	sqliteInMemory    = ":memory:"
	sqliteDefaultFile = "courtledger.db"
)

var errUnsupportedDatabase = errors.New("unsupported database url")

// databaseConfig is the persistence section of runtimeConfig.
type databaseConfig struct {
	URL               string
	MaxOpenConns      int
	SQLiteBusyTimeout time.Duration
}

// connectionLimit returns the pool size for the dialect. Zero means unlimited.
func (cfg databaseConfig) connectionLimit(dialect string) int {
	if dialect == dialectSQLite {
		// SQLite allows a single writer.
		return 1
	}
	return cfg.MaxOpenConns
}

// databaseTarget is a database URL resolved to a gorm dialect.
type databaseTarget struct {
	Dialect string
	// Source is the PostgreSQL DSN or the SQLite file path.
	Source string
}

func parseDatabaseURL(raw string) (databaseTarget, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return databaseTarget{}, fmt.Errorf("%w: empty", errUnsupportedDatabase)
	}
	if !strings.Contains(trimmed, "://") {
		return databaseTarget{Dialect: dialectSQLite, Source: trimmed}, nil
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return databaseTarget{}, fmt.Errorf("%w: %v", errUnsupportedDatabase, err)
	}
	switch parsed.Scheme {
	case "postgres", "postgresql":
		return databaseTarget{Dialect: dialectPostgres, Source: trimmed}, nil
	case dialectSQLite:
		source := parsed.Host + parsed.Path
		if source == "" || source == "/" {
			source = sqliteDefaultFile
		}
		return databaseTarget{Dialect: dialectSQLite, Source: source}, nil
	default:
		return databaseTarget{}, fmt.Errorf("%w: scheme %q", errUnsupportedDatabase, parsed.Scheme)
	}
}

func (target databaseTarget) dialector(cfg databaseConfig) gorm.Dialector {
	if target.Dialect == dialectPostgres {
		return postgres.Open(target.Source)
	}
	return sqlite.Open(sqliteDSN(target.Source, cfg.SQLiteBusyTimeout))
}

// sqliteDSN appends connection pragmas understood by the pure-Go driver.
func sqliteDSN(path string, busyTimeout time.Duration) string {
	if busyTimeout <= 0 {
		return path
	}
	return fmt.Sprintf("%s?_pragma=busy_timeout(%d)", path, busyTimeout.Milliseconds())
}

func (target databaseTarget) ensureDirectory() error {
	if target.Dialect != dialectSQLite || target.Source == sqliteInMemory {
		return nil
	}
	return os.MkdirAll(filepath.Dir(target.Source), 0o755)
}

// databaseHandle owns an open gorm connection and its pool.
type databaseHandle struct {
	db     *gorm.DB
	target databaseTarget
	pool   *sql.DB
}

func openDatabase(ctx context.Context, cfg databaseConfig) (*databaseHandle, error) {
	target, err := parseDatabaseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	if err := target.ensureDirectory(); err != nil {
		return nil, fmt.Errorf("sqlite directory: %w", err)
	}
	db, err := gorm.Open(target.dialector(cfg), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	pool, err := db.DB()
	if err != nil {
		return nil, err
	}
	pool.SetMaxOpenConns(cfg.connectionLimit(target.Dialect))
	return &databaseHandle{db: db.WithContext(ctx), target: target, pool: pool}, nil
}

func (handle *databaseHandle) Close() error {
	return handle.pool.Close()
}

// migrateOnStart creates the SQLite schema; PostgreSQL schemas are managed by the migrate command.
func (handle *databaseHandle) migrateOnStart() error {
	if handle.target.Dialect != dialectSQLite {
		return nil
	}
	if err := gormstore.Migrate(handle.db); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
