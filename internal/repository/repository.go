package repository

import (
	"context"
	"time"

	"gymsync/internal/domain"
)

// Error constants for the repository layer.
var (
	ErrNotFound     = RepositoryError("not found")
	ErrDuplicateID  = RepositoryError("duplicate id")
	ErrUpdateFailed = RepositoryError("update failed")
)

// RepositoryError helps distinguish repository errors.
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// ProgramRepository is the local-store contract for training programs.
// The sync engine is the only writer; UI-facing reads go through Watch.
type ProgramRepository interface {
	GetByID(ctx context.Context, id string) (*domain.TrainingProgram, error)
	// Upsert inserts or fully replaces the row with p.ID.
	Upsert(ctx context.Context, p *domain.TrainingProgram) error
	DeleteByID(ctx context.Context, id string) error
	// ListByProfile returns the profile's programs ordered by local creation time.
	ListByProfile(ctx context.Context, profileID string) ([]domain.TrainingProgram, error)
	ListByStatus(ctx context.Context, statuses ...domain.SyncStatus) ([]domain.TrainingProgram, error)
	// MarkSynced stamps the row SYNCED and records server timestamps.
	MarkSynced(ctx context.Context, id string, serverCreatedAt, serverUpdatedAt *time.Time) error
	// UpdateIDAndStatus atomically renames oldID to newID, sets the status and
	// server timestamps, and repoints child workouts at the new ID. Used when
	// a PENDING_CREATE row is promoted to its server-assigned identity.
	UpdateIDAndStatus(ctx context.Context, oldID, newID string, status domain.SyncStatus, serverCreatedAt, serverUpdatedAt *time.Time) error
	Count(ctx context.Context, profileID string) (int, error)
	// Watch emits the profile's current program list immediately and again
	// after every committed change to the programs table. The channel closes
	// when ctx is done.
	Watch(ctx context.Context, profileID string) <-chan []domain.TrainingProgram
}

// WorkoutRepository is the local-store contract for workouts.
type WorkoutRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Workout, error)
	Upsert(ctx context.Context, w *domain.Workout) error
	DeleteByID(ctx context.Context, id string) error
	// ListByProgram returns the program's workouts ordered by position.
	ListByProgram(ctx context.Context, programID string) ([]domain.Workout, error)
	ListByStatus(ctx context.Context, statuses ...domain.SyncStatus) ([]domain.Workout, error)
	MarkSynced(ctx context.Context, id string, serverCreatedAt, serverUpdatedAt *time.Time) error
	// UpdateIDAndStatus cascades to workout_exercises referencing oldID.
	UpdateIDAndStatus(ctx context.Context, oldID, newID string, status domain.SyncStatus, serverCreatedAt, serverUpdatedAt *time.Time) error
	// Reorder moves the workout to newPosition within its program, shifting
	// the siblings in between so positions stay a dense 0..N-1 permutation.
	// The whole move is one transaction.
	Reorder(ctx context.Context, id string, newPosition int) error
	Count(ctx context.Context, programID string) (int, error)
	Watch(ctx context.Context, programID string) <-chan []domain.Workout
}

// ExerciseRepository is the local-store contract for workout exercises.
// Same shape as WorkoutRepository with the workout as the position scope.
type ExerciseRepository interface {
	GetByID(ctx context.Context, id string) (*domain.WorkoutExercise, error)
	Upsert(ctx context.Context, e *domain.WorkoutExercise) error
	DeleteByID(ctx context.Context, id string) error
	ListByWorkout(ctx context.Context, workoutID string) ([]domain.WorkoutExercise, error)
	ListByStatus(ctx context.Context, statuses ...domain.SyncStatus) ([]domain.WorkoutExercise, error)
	MarkSynced(ctx context.Context, id string, serverCreatedAt, serverUpdatedAt *time.Time) error
	UpdateIDAndStatus(ctx context.Context, oldID, newID string, status domain.SyncStatus, serverCreatedAt, serverUpdatedAt *time.Time) error
	Reorder(ctx context.Context, id string, newPosition int) error
	Count(ctx context.Context, workoutID string) (int, error)
	Watch(ctx context.Context, workoutID string) <-chan []domain.WorkoutExercise
}

// MediaRepository queues media files awaiting upload.
type MediaRepository interface {
	GetByID(ctx context.Context, id string) (*domain.MediaUpload, error)
	Upsert(ctx context.Context, m *domain.MediaUpload) error
	DeleteByID(ctx context.Context, id string) error
	// ListPending returns queued uploads oldest-first.
	ListPending(ctx context.Context, profileID string) ([]domain.MediaUpload, error)
	MarkUploaded(ctx context.Context, id, objectKey string, at time.Time) error
	MarkFailed(ctx context.Context, id string) error
}

// Well-known meta keys.
const (
	MetaKeyLastSyncAt = "last_sync_at"
	MetaKeyDeviceID   = "device_id"
	MetaKeyProfileID  = "profile_id"
)

// MetaRepository is a small string KV store for client state that must
// survive restarts (last sync time, device ID).
type MetaRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}
