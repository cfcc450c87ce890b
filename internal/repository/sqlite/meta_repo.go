package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"gymsync/internal/repository"
)

// sqliteMetaRepository implements repository.MetaRepository.
type sqliteMetaRepository struct {
	db *DB
}

// NewMetaRepository creates the KV store for persistent client state.
func NewMetaRepository(db *DB) repository.MetaRepository {
	return &sqliteMetaRepository{db: db}
}

func (r *sqliteMetaRepository) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := r.db.withTimeout(ctx, defaultDBTimeout)
	defer cancel()

	var value string
	err := r.db.sql.QueryRowContext(ctx,
		`SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", repository.ErrNotFound
	}
	return value, err
}

func (r *sqliteMetaRepository) Set(ctx context.Context, key, value string) error {
	ctx, cancel := r.db.withTimeout(ctx, defaultDBTimeout)
	defer cancel()

	_, err := r.db.sql.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}
