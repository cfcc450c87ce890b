package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gymsync/internal/domain"
	"gymsync/internal/repository"
)

const workoutColumns = `id, program_id, profile_id, name, notes, position, sync_status,
	local_created_at, local_updated_at, server_created_at, server_updated_at`

// sqliteWorkoutRepository implements repository.WorkoutRepository.
type sqliteWorkoutRepository struct {
	db *DB
}

// NewWorkoutRepository creates a new workout repository.
func NewWorkoutRepository(db *DB) repository.WorkoutRepository {
	return &sqliteWorkoutRepository{db: db}
}

func scanWorkout(row rowScanner) (*domain.Workout, error) {
	var w domain.Workout
	var serverCreated, serverUpdated sql.NullTime
	err := row.Scan(&w.ID, &w.ProgramID, &w.ProfileID, &w.Name, &w.Notes, &w.Position,
		&w.SyncStatus, &w.LocalCreatedAt, &w.LocalUpdatedAt, &serverCreated, &serverUpdated)
	if err != nil {
		return nil, err
	}
	if serverCreated.Valid {
		t := serverCreated.Time
		w.ServerCreatedAt = &t
	}
	if serverUpdated.Valid {
		t := serverUpdated.Time
		w.ServerUpdatedAt = &t
	}
	return &w, nil
}

func (r *sqliteWorkoutRepository) GetByID(ctx context.Context, id string) (*domain.Workout, error) {
	ctx, cancel := r.db.withTimeout(ctx, defaultDBTimeout)
	defer cancel()

	row := r.db.sql.QueryRowContext(ctx,
		`SELECT `+workoutColumns+` FROM workouts WHERE id = ?`, id)
	w, err := scanWorkout(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return w, err
}

func (r *sqliteWorkoutRepository) Upsert(ctx context.Context, w *domain.Workout) error {
	ctx, cancel := r.db.withTimeout(ctx, defaultDBTimeout)
	defer cancel()

	_, err := r.db.sql.ExecContext(ctx, `
		INSERT INTO workouts (`+workoutColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			program_id = excluded.program_id,
			profile_id = excluded.profile_id,
			name = excluded.name,
			notes = excluded.notes,
			position = excluded.position,
			sync_status = excluded.sync_status,
			local_created_at = excluded.local_created_at,
			local_updated_at = excluded.local_updated_at,
			server_created_at = excluded.server_created_at,
			server_updated_at = excluded.server_updated_at`,
		w.ID, w.ProgramID, w.ProfileID, w.Name, w.Notes, w.Position, w.SyncStatus,
		w.LocalCreatedAt, w.LocalUpdatedAt, w.ServerCreatedAt, w.ServerUpdatedAt)
	if err != nil {
		return err
	}
	r.db.notifier.notify(tableWorkouts)
	return nil
}

// DeleteByID removes the workout and closes the position gap it leaves so
// sibling positions stay dense.
func (r *sqliteWorkoutRepository) DeleteByID(ctx context.Context, id string) error {
	ctx, cancel := r.db.withTimeout(ctx, defaultDBTimeout)
	defer cancel()

	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		var programID string
		var position int
		err := tx.QueryRowContext(ctx,
			`SELECT program_id, position FROM workouts WHERE id = ?`, id).
			Scan(&programID, &position)
		if errors.Is(err, sql.ErrNoRows) {
			return nil // already gone, idempotent
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM workouts WHERE id = ?`, id); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE workouts SET position = position - 1
			WHERE program_id = ? AND position > ?`, programID, position)
		return err
	})
	if err != nil {
		return err
	}
	// Child exercises cascade with the workout.
	r.db.notifier.notify(tableWorkouts)
	r.db.notifier.notify(tableExercises)
	return nil
}

func (r *sqliteWorkoutRepository) ListByProgram(ctx context.Context, programID string) ([]domain.Workout, error) {
	ctx, cancel := r.db.withTimeout(ctx, defaultDBTimeout)
	defer cancel()

	rows, err := r.db.sql.QueryContext(ctx,
		`SELECT `+workoutColumns+` FROM workouts
		 WHERE program_id = ?
		 ORDER BY position ASC`, programID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workouts []domain.Workout
	for rows.Next() {
		w, err := scanWorkout(rows)
		if err != nil {
			return nil, err
		}
		workouts = append(workouts, *w)
	}
	return workouts, rows.Err()
}

func (r *sqliteWorkoutRepository) ListByStatus(ctx context.Context, statuses ...domain.SyncStatus) ([]domain.Workout, error) {
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
		`SELECT `+workoutColumns+` FROM workouts
		 WHERE sync_status IN (`+statusPlaceholders(len(statuses))+`)
		 ORDER BY local_created_at ASC, id ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workouts []domain.Workout
	for rows.Next() {
		w, err := scanWorkout(rows)
		if err != nil {
			return nil, err
		}
		workouts = append(workouts, *w)
	}
	return workouts, rows.Err()
}

func (r *sqliteWorkoutRepository) MarkSynced(ctx context.Context, id string, serverCreatedAt, serverUpdatedAt *time.Time) error {
	ctx, cancel := r.db.withTimeout(ctx, defaultDBTimeout)
	defer cancel()

	res, err := r.db.sql.ExecContext(ctx, `
		UPDATE workouts
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
	r.db.notifier.notify(tableWorkouts)
	return nil
}

// UpdateIDAndStatus renames a workout row to its server-assigned ID and
// repoints child workout_exercises, all in one transaction.
func (r *sqliteWorkoutRepository) UpdateIDAndStatus(ctx context.Context, oldID, newID string, status domain.SyncStatus, serverCreatedAt, serverUpdatedAt *time.Time) error {
	ctx, cancel := r.db.withTimeout(ctx, defaultDBTimeout)
	defer cancel()

	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `PRAGMA defer_foreign_keys = ON`); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE workouts
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
			`UPDATE workout_exercises SET workout_id = ? WHERE workout_id = ?`, newID, oldID)
		return err
	})
	if err != nil {
		return err
	}
	r.db.notifier.notify(tableWorkouts)
	r.db.notifier.notify(tableExercises)
	return nil
}

// Reorder moves the workout to newPosition within its program. Siblings
// between the old and new position shift by one so the program's positions
// remain a dense permutation of 0..N-1. The whole move is one transaction.
func (r *sqliteWorkoutRepository) Reorder(ctx context.Context, id string, newPosition int) error {
	ctx, cancel := r.db.withTimeout(ctx, defaultDBTimeout)
	defer cancel()

	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		var programID string
		var oldPosition int
		err := tx.QueryRowContext(ctx,
			`SELECT program_id, position FROM workouts WHERE id = ?`, id).
			Scan(&programID, &oldPosition)
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		if err != nil {
			return err
		}
		if oldPosition == newPosition {
			return nil
		}
		if newPosition > oldPosition {
			// Moving down: pull siblings in (old, new] up by one.
			_, err = tx.ExecContext(ctx, `
				UPDATE workouts SET position = position - 1
				WHERE program_id = ? AND position > ? AND position <= ?`,
				programID, oldPosition, newPosition)
		} else {
			// Moving up: push siblings in [new, old) down by one.
			_, err = tx.ExecContext(ctx, `
				UPDATE workouts SET position = position + 1
				WHERE program_id = ? AND position >= ? AND position < ?`,
				programID, newPosition, oldPosition)
		}
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE workouts SET position = ? WHERE id = ?`, newPosition, id)
		return err
	})
	if err != nil {
		return err
	}
	r.db.notifier.notify(tableWorkouts)
	return nil
}

func (r *sqliteWorkoutRepository) Count(ctx context.Context, programID string) (int, error) {
	ctx, cancel := r.db.withTimeout(ctx, defaultDBTimeout)
	defer cancel()

	var count int
	err := r.db.sql.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM workouts WHERE program_id = ?`, programID).Scan(&count)
	return count, err
}

func (r *sqliteWorkoutRepository) Watch(ctx context.Context, programID string) <-chan []domain.Workout {
	out := make(chan []domain.Workout, 1)
	signal, unsubscribe := r.db.notifier.subscribe(tableWorkouts)

	go func() {
		defer close(out)
		defer unsubscribe()

		emit := func() {
			workouts, err := r.ListByProgram(ctx, programID)
			if err != nil {
				return
			}
			select {
			case out <- workouts:
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
