// Package sqlite implements the repository contracts over a local SQLite
// database. It is the device-side source of truth: every mutation commits
// here first, and sync state lives in each row's sync_status column.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const defaultDBTimeout = 5 * time.Second

// DB wraps the SQLite handle together with the change notifier that backs
// the Watch streams.
type DB struct {
	sql      *sql.DB
	notifier *notifier
}

// Open opens (creating if necessary) the database at path and runs schema
// migration. WAL mode keeps readers unblocked while the sync engine writes.
func Open(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}

	db := &DB{sql: sqlDB, notifier: newNotifier()}
	if err := db.createTables(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the underlying handle. Watch channels stop emitting once
// their contexts are cancelled; Close does not force-close them.
func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS programs (
			id TEXT PRIMARY KEY,
			profile_id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			sync_status TEXT NOT NULL,
			local_created_at DATETIME NOT NULL,
			local_updated_at DATETIME NOT NULL,
			server_created_at DATETIME,
			server_updated_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS workouts (
			id TEXT PRIMARY KEY,
			program_id TEXT NOT NULL REFERENCES programs(id) ON DELETE CASCADE,
			profile_id TEXT NOT NULL,
			name TEXT NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			position INTEGER NOT NULL,
			sync_status TEXT NOT NULL,
			local_created_at DATETIME NOT NULL,
			local_updated_at DATETIME NOT NULL,
			server_created_at DATETIME,
			server_updated_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS workout_exercises (
			id TEXT PRIMARY KEY,
			workout_id TEXT NOT NULL REFERENCES workouts(id) ON DELETE CASCADE,
			profile_id TEXT NOT NULL,
			exercise_name TEXT NOT NULL,
			sets INTEGER NOT NULL,
			reps INTEGER NOT NULL,
			weight_kg REAL NOT NULL DEFAULT 0,
			rest_seconds INTEGER NOT NULL DEFAULT 0,
			position INTEGER NOT NULL,
			sync_status TEXT NOT NULL,
			local_created_at DATETIME NOT NULL,
			local_updated_at DATETIME NOT NULL,
			server_created_at DATETIME,
			server_updated_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS media_uploads (
			id TEXT PRIMARY KEY,
			profile_id TEXT NOT NULL,
			workout_id TEXT NOT NULL,
			file_path TEXT NOT NULL,
			content_type TEXT NOT NULL,
			object_key TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			local_created_at DATETIME NOT NULL,
			uploaded_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_programs_profile ON programs(profile_id);`,
		`CREATE INDEX IF NOT EXISTS idx_programs_status ON programs(sync_status);`,
		`CREATE INDEX IF NOT EXISTS idx_workouts_program ON workouts(program_id, position);`,
		`CREATE INDEX IF NOT EXISTS idx_workouts_status ON workouts(sync_status);`,
		`CREATE INDEX IF NOT EXISTS idx_exercises_workout ON workout_exercises(workout_id, position);`,
		`CREATE INDEX IF NOT EXISTS idx_exercises_status ON workout_exercises(sync_status);`,
		`CREATE INDEX IF NOT EXISTS idx_media_status ON media_uploads(profile_id, status);`,
	}

	for _, query := range queries {
		if _, err := d.sql.Exec(query); err != nil {
			return fmt.Errorf("create table: %w: %s", err, query)
		}
	}
	return nil
}

// withTx runs fn inside a transaction, rolling back on error or panic.
func (d *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (d *DB) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, timeout)
}

// statusPlaceholders renders "?,?,?" plus the arg slice for an IN clause.
func statusPlaceholders(n int) string {
	if n <= 0 {
		return ""
	}
	s := "?"
	for i := 1; i < n; i++ {
		s += ",?"
	}
	return s
}
