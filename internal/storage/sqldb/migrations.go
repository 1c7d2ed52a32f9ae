package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	internal_errors "github.com/itchan-dev/guestbook/internal/errors"
	"github.com/itchan-dev/guestbook/internal/logger"
)

type migration struct {
	name string
	sql  string
	// skipIf counts rows that mean the change is already in place
	skipIf string
}

// The first migration is the legacy messages table, so an existing
// guestbook.db is adopted as is. Older files lack video_path.
var sqliteMigrations = []migration{
	{
		name: "create messages table",
		sql: `
			CREATE TABLE IF NOT EXISTS messages (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				name        TEXT    NOT NULL,
				message     TEXT    NOT NULL,
				image_path  TEXT,
				video_path  TEXT
			)
		`,
	},
	{
		name: "add messages.created_at",
		sql:  `ALTER TABLE messages ADD COLUMN created_at DATETIME`,
	},
	{
		name:   "add messages.video_path",
		sql:    `ALTER TABLE messages ADD COLUMN video_path TEXT`,
		skipIf: `SELECT COUNT(*) FROM pragma_table_info('messages') WHERE name = 'video_path'`,
	},
}

var postgresMigrations = []migration{
	{
		name: "create messages table",
		sql: `
			CREATE TABLE IF NOT EXISTS messages (
				id          BIGSERIAL PRIMARY KEY,
				name        TEXT NOT NULL,
				message     TEXT NOT NULL,
				image_path  TEXT,
				video_path  TEXT
			)
		`,
	},
	{
		name: "add messages.created_at",
		sql:  `ALTER TABLE messages ADD COLUMN IF NOT EXISTS created_at TIMESTAMPTZ`,
	},
	{
		name: "add messages.video_path",
		sql:  `ALTER TABLE messages ADD COLUMN IF NOT EXISTS video_path TEXT`,
	},
}

// Migrate applies pending migrations, each one in its own transaction.
func (s *Storage) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return &internal_errors.PersistenceError{Op: "create migrations table", Err: err}
	}

	for i, m := range s.dialect.migrations {
		version := i + 1

		var count int
		err := s.db.QueryRowContext(ctx,
			s.dialect.rebind("SELECT COUNT(*) FROM schema_migrations WHERE version = ?"), version).Scan(&count)
		if err != nil {
			return &internal_errors.PersistenceError{Op: fmt.Sprintf("check migration %d", version), Err: err}
		}
		if count > 0 {
			continue
		}

		logger.Log.Info("running migration", "version", version, "name", m.name)
		err = WithTx(ctx, s.db, func(tx *sql.Tx) error {
			applied := 0
			if m.skipIf != "" {
				if err := tx.QueryRowContext(ctx, m.skipIf).Scan(&applied); err != nil {
					return err
				}
			}
			if applied == 0 {
				if _, err := tx.ExecContext(ctx, m.sql); err != nil {
					return err
				}
			}
			_, err := tx.ExecContext(ctx, s.dialect.rebind("INSERT INTO schema_migrations (version) VALUES (?)"), version)
			return err
		})
		if err != nil {
			return &internal_errors.PersistenceError{Op: fmt.Sprintf("migration %d (%s)", version, m.name), Err: err}
		}
	}

	return nil
}
