package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gymsync/internal/domain"
	"gymsync/internal/repository"
)

const programColumns = `id, profile_id, name, description, sync_status,
	local_created_at, local_updated_at, server_created_at, server_updated_at`

// sqliteProgramRepository implements repository.ProgramRepository.
type sqliteProgramRepository struct {
	db *DB
}

// NewProgramRepository creates a new training-program repository.
func NewProgramRepository(db *DB) repository.ProgramRepository {
	return &sqliteProgramRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProgram(row rowScanner) (*domain.TrainingProgram, error) {
	var p domain.TrainingProgram
	var serverCreated, serverUpdated sql.NullTime
	err := row.Scan(&p.ID, &p.ProfileID, &p.Name, &p.Description, &p.SyncStatus,
		&p.LocalCreatedAt, &p.LocalUpdatedAt, &serverCreated, &serverUpdated)
	if err != nil {
		return nil, err
	}
	if serverCreated.Valid {
		t := serverCreated.Time
		p.ServerCreatedAt = &t
	}
	if serverUpdated.Valid {
		t := serverUpdated.Time
		p.ServerUpdatedAt = &t
	}
	return &p, nil
}

func (r *sqliteProgramRepository) GetByID(ctx context.Context, id string) (*domain.TrainingProgram, error) {
	ctx, cancel := r.db.withTimeout(ctx, defaultDBTimeout)
	defer cancel()

	row := r.db.sql.QueryRowContext(ctx,
		`SELECT `+programColumns+` FROM programs WHERE id = ?`, id)
	p, err := scanProgram(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return p, err
}

func (r *sqliteProgramRepository) Upsert(ctx context.Context, p *domain.TrainingProgram) error {
	ctx, cancel := r.db.withTimeout(ctx, defaultDBTimeout)
	defer cancel()

	_, err := r.db.sql.ExecContext(ctx, `
		INSERT INTO programs (`+programColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			profile_id = excluded.profile_id,
			name = excluded.name,
			description = excluded.description,
			sync_status = excluded.sync_status,
			local_created_at = excluded.local_created_at,
			local_updated_at = excluded.local_updated_at,
			server_created_at = excluded.server_created_at,
			server_updated_at = excluded.server_updated_at`,
		p.ID, p.ProfileID, p.Name, p.Description, p.SyncStatus,
		p.LocalCreatedAt, p.LocalUpdatedAt, p.ServerCreatedAt, p.ServerUpdatedAt)
	if err != nil {
		return err
	}
	r.db.notifier.notify(tablePrograms)
	return nil
}

func (r *sqliteProgramRepository) DeleteByID(ctx context.Context, id string) error {
	ctx, cancel := r.db.withTimeout(ctx, defaultDBTimeout)
	defer cancel()

	res, err := r.db.sql.ExecContext(ctx, `DELETE FROM programs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		// Child workouts and their exercises cascade with the program.
		r.db.notifier.notify(tablePrograms)
		r.db.notifier.notify(tableWorkouts)
		r.db.notifier.notify(tableExercises)
	}
	return nil
}

func (r *sqliteProgramRepository) ListByProfile(ctx context.Context, profileID string) ([]domain.TrainingProgram, error) {
	ctx, cancel := r.db.withTimeout(ctx, defaultDBTimeout)
	defer cancel()

	rows, err := r.db.sql.QueryContext(ctx,
		`SELECT `+programColumns+` FROM programs
		 WHERE profile_id = ?
		 ORDER BY local_created_at ASC, id ASC`, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var programs []domain.TrainingProgram
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			return nil, err
		}
		programs = append(programs, *p)
	}
	return programs, rows.Err()
}

func (r *sqliteProgramRepository) ListByStatus(ctx context.Context, statuses ...domain.SyncStatus) ([]domain.TrainingProgram, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	ctx, cancel := r.db.withTimeout(ctx, defaultDBTimeout)
	defer cancel()

	args := make([]any, len(statuses))
	for i, s := range statuses {
		args[i] = string(s)
	}
	rows, err := r.db.sql.QueryContext(ctx,
		`SELECT `+programColumns+` FROM programs
		 WHERE sync_status IN (`+statusPlaceholders(len(statuses))+`)
		 ORDER BY local_created_at ASC, id ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var programs []domain.TrainingProgram
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			return nil, err
		}
		programs = append(programs, *p)
	}
	return programs, rows.Err()
}

func (r *sqliteProgramRepository) MarkSynced(ctx context.Context, id string, serverCreatedAt, serverUpdatedAt *time.Time) error {
	ctx, cancel := r.db.withTimeout(ctx, defaultDBTimeout)
	defer cancel()

	res, err := r.db.sql.ExecContext(ctx, `
		UPDATE programs
		SET sync_status = ?,
			server_created_at = COALESCE(?, server_created_at),
			server_updated_at = COALESCE(?, server_updated_at)
		WHERE id = ?`,
		domain.SyncStatusSynced, serverCreatedAt, serverUpdatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	r.db.notifier.notify(tablePrograms)
	return nil
}

// UpdateIDAndStatus renames a program row to its server-assigned ID and
// repoints child workouts, all in one transaction. Foreign key checks are
// deferred to commit so the rename and the cascade can happen in either order.
func (r *sqliteProgramRepository) UpdateIDAndStatus(ctx context.Context, oldID, newID string, status domain.SyncStatus, serverCreatedAt, serverUpdatedAt *time.Time) error {
	ctx, cancel := r.db.withTimeout(ctx, defaultDBTimeout)
	defer cancel()

	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `PRAGMA defer_foreign_keys = ON`); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE programs
			SET id = ?, sync_status = ?, server_created_at = ?, server_updated_at = ?
			WHERE id = ?`,
			newID, status, serverCreatedAt, serverUpdatedAt, oldID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return repository.ErrNotFound
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE workouts SET program_id = ? WHERE program_id = ?`, newID, oldID)
		return err
	})
	if err != nil {
		return err
	}
	r.db.notifier.notify(tablePrograms)
	r.db.notifier.notify(tableWorkouts)
	return nil
}

func (r *sqliteProgramRepository) Count(ctx context.Context, profileID string) (int, error) {
	ctx, cancel := r.db.withTimeout(ctx, defaultDBTimeout)
	defer cancel()

	var count int
	err := r.db.sql.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM programs WHERE profile_id = ?`, profileID).Scan(&count)
	return count, err
}

func (r *sqliteProgramRepository) Watch(ctx context.Context, profileID string) <-chan []domain.TrainingProgram {
	out := make(chan []domain.TrainingProgram, 1)
	signal, unsubscribe := r.db.notifier.subscribe(tablePrograms)

	go func() {
		defer close(out)
		defer unsubscribe()

		emit := func() {
			programs, err := r.ListByProfile(ctx, profileID)
			if err != nil {
				// Store unreadable (likely shutdown); keep the last emission.
				return
			}
			select {
			case out <- programs:
			case <-ctx.Done():
			}
		}

		emit()
		for {
			select {
			case <-ctx.Done():
				return
			case <-signal:
				emit()
			}
		}
	}()
	return out
}
