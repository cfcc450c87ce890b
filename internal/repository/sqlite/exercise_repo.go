package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gymsync/internal/domain"
	"gymsync/internal/repository"
)

const exerciseColumns = `id, workout_id, profile_id, exercise_name, sets, reps,
	weight_kg, rest_seconds, position, sync_status,
	local_created_at, local_updated_at, server_created_at, server_updated_at`

// sqliteExerciseRepository implements repository.ExerciseRepository.
type sqliteExerciseRepository struct {
	db *DB
}

// NewExerciseRepository creates a new workout-exercise repository.
func NewExerciseRepository(db *DB) repository.ExerciseRepository {
	return &sqliteExerciseRepository{db: db}
}

func scanExercise(row rowScanner) (*domain.WorkoutExercise, error) {
	var e domain.WorkoutExercise
	var serverCreated, serverUpdated sql.NullTime
	err := row.Scan(&e.ID, &e.WorkoutID, &e.ProfileID, &e.ExerciseName, &e.Sets, &e.Reps,
		&e.WeightKg, &e.RestSeconds, &e.Position, &e.SyncStatus,
		&e.LocalCreatedAt, &e.LocalUpdatedAt, &serverCreated, &serverUpdated)
	if err != nil {
		return nil, err
	}
	if serverCreated.Valid {
		t := serverCreated.Time
		e.ServerCreatedAt = &t
	}
	if serverUpdated.Valid {
		t := serverUpdated.Time
		e.ServerUpdatedAt = &t
	}
	return &e, nil
}

func (r *sqliteExerciseRepository) GetByID(ctx context.Context, id string) (*domain.WorkoutExercise, error) {
	ctx, cancel := r.db.withTimeout(ctx, defaultDBTimeout)
	defer cancel()

	row := r.db.sql.QueryRowContext(ctx,
		`SELECT `+exerciseColumns+` FROM workout_exercises WHERE id = ?`, id)
	e, err := scanExercise(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return e, err
}

func (r *sqliteExerciseRepository) Upsert(ctx context.Context, e *domain.WorkoutExercise) error {
	ctx, cancel := r.db.withTimeout(ctx, defaultDBTimeout)
	defer cancel()

	_, err := r.db.sql.ExecContext(ctx, `
		INSERT INTO workout_exercises (`+exerciseColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			workout_id = excluded.workout_id,
			profile_id = excluded.profile_id,
			exercise_name = excluded.exercise_name,
			sets = excluded.sets,
			reps = excluded.reps,
			weight_kg = excluded.weight_kg,
			rest_seconds = excluded.rest_seconds,
			position = excluded.position,
			sync_status = excluded.sync_status,
			local_created_at = excluded.local_created_at,
			local_updated_at = excluded.local_updated_at,
			server_created_at = excluded.server_created_at,
			server_updated_at = excluded.server_updated_at`,
		e.ID, e.WorkoutID, e.ProfileID, e.ExerciseName, e.Sets, e.Reps,
		e.WeightKg, e.RestSeconds, e.Position, e.SyncStatus,
		e.LocalCreatedAt, e.LocalUpdatedAt, e.ServerCreatedAt, e.ServerUpdatedAt)
	if err != nil {
		return err
	}
	r.db.notifier.notify(tableExercises)
	return nil
}

// DeleteByID removes the exercise and closes the position gap it leaves.
func (r *sqliteExerciseRepository) DeleteByID(ctx context.Context, id string) error {
	ctx, cancel := r.db.withTimeout(ctx, defaultDBTimeout)
	defer cancel()

	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		var workoutID string
		var position int
		err := tx.QueryRowContext(ctx,
			`SELECT workout_id, position FROM workout_exercises WHERE id = ?`, id).
			Scan(&workoutID, &position)
		if errors.Is(err, sql.ErrNoRows) {
			return nil // already gone, idempotent
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM workout_exercises WHERE id = ?`, id); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE workout_exercises SET position = position - 1
			WHERE workout_id = ? AND position > ?`, workoutID, position)
		return err
	})
	if err != nil {
		return err
	}
	r.db.notifier.notify(tableExercises)
	return nil
}

func (r *sqliteExerciseRepository) ListByWorkout(ctx context.Context, workoutID string) ([]domain.WorkoutExercise, error) {
	ctx, cancel := r.db.withTimeout(ctx, defaultDBTimeout)
	defer cancel()

	rows, err := r.db.sql.QueryContext(ctx,
		`SELECT `+exerciseColumns+` FROM workout_exercises
		 WHERE workout_id = ?
		 ORDER BY position ASC`, workoutID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exercises []domain.WorkoutExercise
	for rows.Next() {
		e, err := scanExercise(rows)
		if err != nil {
			return nil, err
		}
		exercises = append(exercises, *e)
	}
	return exercises, rows.Err()
}

func (r *sqliteExerciseRepository) ListByStatus(ctx context.Context, statuses ...domain.SyncStatus) ([]domain.WorkoutExercise, error) {
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
		`SELECT `+exerciseColumns+` FROM workout_exercises
		 WHERE sync_status IN (`+statusPlaceholders(len(statuses))+`)
		 ORDER BY local_created_at ASC, id ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exercises []domain.WorkoutExercise
	for rows.Next() {
		e, err := scanExercise(rows)
		if err != nil {
			return nil, err
		}
		exercises = append(exercises, *e)
	}
	return exercises, rows.Err()
}

func (r *sqliteExerciseRepository) MarkSynced(ctx context.Context, id string, serverCreatedAt, serverUpdatedAt *time.Time) error {
	ctx, cancel := r.db.withTimeout(ctx, defaultDBTimeout)
	defer cancel()

	res, err := r.db.sql.ExecContext(ctx, `
		UPDATE workout_exercises
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
	r.db.notifier.notify(tableExercises)
	return nil
}

// UpdateIDAndStatus renames an exercise row to its server-assigned ID.
// Exercises have no dependent rows, so no cascade is needed.
func (r *sqliteExerciseRepository) UpdateIDAndStatus(ctx context.Context, oldID, newID string, status domain.SyncStatus, serverCreatedAt, serverUpdatedAt *time.Time) error {
	ctx, cancel := r.db.withTimeout(ctx, defaultDBTimeout)
	defer cancel()

	res, err := r.db.sql.ExecContext(ctx, `
		UPDATE workout_exercises
		SET id = ?, sync_status = ?, server_created_at = ?, server_updated_at = ?
		WHERE id = ?`,
		newID, status, serverCreatedAt, serverUpdatedAt, oldID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	r.db.notifier.notify(tableExercises)
	return nil
}

// Reorder moves the exercise to newPosition within its workout, shifting
// siblings so positions stay dense. One transaction.
func (r *sqliteExerciseRepository) Reorder(ctx context.Context, id string, newPosition int) error {
	ctx, cancel := r.db.withTimeout(ctx, defaultDBTimeout)
	defer cancel()

	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		var workoutID string
		var oldPosition int
		err := tx.QueryRowContext(ctx,
			`SELECT workout_id, position FROM workout_exercises WHERE id = ?`, id).
			Scan(&workoutID, &oldPosition)
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
			_, err = tx.ExecContext(ctx, `
				UPDATE workout_exercises SET position = position - 1
				WHERE workout_id = ? AND position > ? AND position <= ?`,
				workoutID, oldPosition, newPosition)
		} else {
			_, err = tx.ExecContext(ctx, `
				UPDATE workout_exercises SET position = position + 1
				WHERE workout_id = ? AND position >= ? AND position < ?`,
				workoutID, newPosition, oldPosition)
		}
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE workout_exercises SET position = ? WHERE id = ?`, newPosition, id)
		return err
	})
	if err != nil {
		return err
	}
	r.db.notifier.notify(tableExercises)
	return nil
}

func (r *sqliteExerciseRepository) Count(ctx context.Context, workoutID string) (int, error) {
	ctx, cancel := r.db.withTimeout(ctx, defaultDBTimeout)
	defer cancel()

	var count int
	err := r.db.sql.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM workout_exercises WHERE workout_id = ?`, workoutID).Scan(&count)
	return count, err
}

func (r *sqliteExerciseRepository) Watch(ctx context.Context, workoutID string) <-chan []domain.WorkoutExercise {
	out := make(chan []domain.WorkoutExercise, 1)
	signal, unsubscribe := r.db.notifier.subscribe(tableExercises)

	go func() {
		defer close(out)
		defer unsubscribe()

		emit := func() {
			exercises, err := r.ListByWorkout(ctx, workoutID)
			if err != nil {
				return
			}
			select {
			case out <- exercises:
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
