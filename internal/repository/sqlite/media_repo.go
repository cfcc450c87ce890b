package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gymsync/internal/domain"
	"gymsync/internal/repository"
)

const mediaColumns = `id, profile_id, workout_id, file_path, content_type,
	object_key, status, attempts, local_created_at, uploaded_at`

// sqliteMediaRepository implements repository.MediaRepository.
type sqliteMediaRepository struct {
	db *DB
}

// NewMediaRepository creates a new media-upload queue repository.
func NewMediaRepository(db *DB) repository.MediaRepository {
	return &sqliteMediaRepository{db: db}
}

func scanMedia(row rowScanner) (*domain.MediaUpload, error) {
	var m domain.MediaUpload
	var uploadedAt sql.NullTime
	err := row.Scan(&m.ID, &m.ProfileID, &m.WorkoutID, &m.FilePath, &m.ContentType,
		&m.ObjectKey, &m.Status, &m.Attempts, &m.LocalCreatedAt, &uploadedAt)
	if err != nil {
		return nil, err
	}
	if uploadedAt.Valid {
		t := uploadedAt.Time
		m.UploadedAt = &t
	}
	return &m, nil
}

func (r *sqliteMediaRepository) GetByID(ctx context.Context, id string) (*domain.MediaUpload, error) {
	ctx, cancel := r.db.withTimeout(ctx, defaultDBTimeout)
	defer cancel()

	row := r.db.sql.QueryRowContext(ctx,
		`SELECT `+mediaColumns+` FROM media_uploads WHERE id = ?`, id)
	m, err := scanMedia(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return m, err
}

func (r *sqliteMediaRepository) Upsert(ctx context.Context, m *domain.MediaUpload) error {
	ctx, cancel := r.db.withTimeout(ctx, defaultDBTimeout)
	defer cancel()

	_, err := r.db.sql.ExecContext(ctx, `
		INSERT INTO media_uploads (`+mediaColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			profile_id = excluded.profile_id,
			workout_id = excluded.workout_id,
			file_path = excluded.file_path,
			content_type = excluded.content_type,
			object_key = excluded.object_key,
			status = excluded.status,
			attempts = excluded.attempts,
			local_created_at = excluded.local_created_at,
			uploaded_at = excluded.uploaded_at`,
		m.ID, m.ProfileID, m.WorkoutID, m.FilePath, m.ContentType,
		m.ObjectKey, m.Status, m.Attempts, m.LocalCreatedAt, m.UploadedAt)
	return err
}

func (r *sqliteMediaRepository) DeleteByID(ctx context.Context, id string) error {
	ctx, cancel := r.db.withTimeout(ctx, defaultDBTimeout)
	defer cancel()

	_, err := r.db.sql.ExecContext(ctx, `DELETE FROM media_uploads WHERE id = ?`, id)
	return err
}

func (r *sqliteMediaRepository) ListPending(ctx context.Context, profileID string) ([]domain.MediaUpload, error) {
	ctx, cancel := r.db.withTimeout(ctx, defaultDBTimeout)
	defer cancel()

	rows, err := r.db.sql.QueryContext(ctx,
		`SELECT `+mediaColumns+` FROM media_uploads
		 WHERE profile_id = ? AND status = ?
		 ORDER BY local_created_at ASC`, profileID, domain.MediaStatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var uploads []domain.MediaUpload
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, *m)
	}
	return uploads, rows.Err()
}

func (r *sqliteMediaRepository) MarkUploaded(ctx context.Context, id, objectKey string, at time.Time) error {
	ctx, cancel := r.db.withTimeout(ctx, defaultDBTimeout)
	defer cancel()

	res, err := r.db.sql.ExecContext(ctx, `
		UPDATE media_uploads
		SET status = ?, object_key = ?, uploaded_at = ?
		WHERE id = ?`,
		domain.MediaStatusUploaded, objectKey, at, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// MarkFailed bumps the attempt counter; the row stays pending so the next
// sync run retries it.
func (r *sqliteMediaRepository) MarkFailed(ctx context.Context, id string) error {
	ctx, cancel := r.db.withTimeout(ctx, defaultDBTimeout)
	defer cancel()

	res, err := r.db.sql.ExecContext(ctx, `
		UPDATE media_uploads SET attempts = attempts + 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
