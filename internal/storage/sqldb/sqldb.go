// Package sqldb implements the message repository on top of database/sql.
//
// Two drivers are supported: SQLite (modernc.org/sqlite, the default, a single file
// next to the process) and PostgreSQL (lib/pq). Statements are written once with
// '?' placeholders and rebound per dialect.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"  // Registers the PostgreSQL driver
	_ "modernc.org/sqlite" // Registers the SQLite driver

	"github.com/itchan-dev/guestbook/internal/config"
	"github.com/itchan-dev/guestbook/internal/logger"
	"github.com/itchan-dev/guestbook/internal/service"
)

type Storage struct {
	db      *sql.DB
	dialect dialect
}

// Ensure Storage implements the repository interfaces at compile time.
var (
	_ service.MessageStorage = (*Storage)(nil)
	_ service.GCStorage      = (*Storage)(nil)
)

// ConnectionConfig holds database connection pool settings.
type ConnectionConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultConnectionConfig is used for PostgreSQL.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,
	}
}

// LightweightConnectionConfig is used for SQLite, where writers serialize on the file lock anyway.
func LightweightConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		MaxOpenConns:    4,
		MaxIdleConns:    4,
		ConnMaxLifetime: 0,
		ConnMaxIdleTime: 5 * time.Minute,
	}
}

// New opens the configured store and creates the schema if it does not exist yet.
func New(ctx context.Context, cfg *config.Config) (*Storage, error) {
	var (
		d       dialect
		dsn     string
		connCfg ConnectionConfig
	)
	switch cfg.Public.Storage.Driver {
	case config.DriverSQLite:
		d = sqliteDialect
		dsn = sqliteDSN(cfg.Public.Storage.SQLitePath)
		connCfg = LightweightConnectionConfig()
	case config.DriverPostgres:
		d = postgresDialect
		pg := cfg.Private.Pg
		dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			pg.Host, pg.Port, pg.User, pg.Password, pg.Dbname)
		connCfg = DefaultConnectionConfig()
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Public.Storage.Driver)
	}

	logger.Log.Info("connecting to database", "driver", d.name)
	db, err := Connect(ctx, d.driver, dsn, connCfg)
	if err != nil {
		return nil, err
	}

	storage := newStorage(db, d)
	if err := storage.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	logger.Log.Info("database ready", "driver", d.name)
	return storage, nil
}

func newStorage(db *sql.DB, d dialect) *Storage {
	return &Storage{db: db, dialect: d}
}

func sqliteDSN(path string) string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
}

// Connect opens a pool and verifies connectivity with a ping.
func Connect(ctx context.Context, driverName, dsn string, connCfg ConnectionConfig) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(connCfg.MaxOpenConns)
	db.SetMaxIdleConns(connCfg.MaxIdleConns)
	db.SetConnMaxLifetime(connCfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(connCfg.ConnMaxIdleTime)

	if err = db.PingContext(ctx); err != nil {
		db.Close() // Close the connection if ping fails
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// WithTx executes fn within a transaction, rolling back when fn returns an error.
func WithTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // No-op if transaction is already committed

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Storage) Close() error {
	return s.db.Close()
}
