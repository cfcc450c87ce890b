package service

import (
	"context"
	"errors"
	"log"

	"gymsync/internal/domain"
	"gymsync/internal/repository"
	"gymsync/internal/syncerr"
)

// ExerciseInput is the full prescription supplied when creating an exercise.
type ExerciseInput struct {
	ExerciseName string
	Sets         int
	Reps         int
	WeightKg     float64
	RestSeconds  int
}

// ExerciseUpdate carries a partial update: nil fields are left unchanged.
type ExerciseUpdate struct {
	ExerciseName *string
	Sets         *int
	Reps         *int
	WeightKg     *float64
	RestSeconds  *int
}

// ExerciseService manages the exercises of a workout. Mirrors WorkoutService:
// local-first writes, dense per-workout positions, best-effort pushes.
type ExerciseService interface {
	Create(ctx context.Context, workoutID string, input ExerciseInput) (*domain.WorkoutExercise, error)
	UpdateFields(ctx context.Context, id string, update ExerciseUpdate) (*domain.WorkoutExercise, error)
	Delete(ctx context.Context, id string) (bool, error)
	Reorder(ctx context.Context, id string, newPosition int) error
	Get(ctx context.Context, id string) (*domain.WorkoutExercise, error)
	List(ctx context.Context, workoutID string) ([]domain.WorkoutExercise, error)
	Watch(ctx context.Context, workoutID string) <-chan []domain.WorkoutExercise
}

type exerciseService struct {
	exercises repository.ExerciseRepository
	workouts  repository.WorkoutRepository
	gateway   ExerciseGateway
	oracle    connectivityOracle
	logger    *log.Logger
	clock     Clock
	newID     IDGenerator
}

// NewExerciseService creates a new instance of exerciseService.
func NewExerciseService(
	exercises repository.ExerciseRepository,
	workouts repository.WorkoutRepository,
	gateway ExerciseGateway,
	oracle connectivityOracle,
	logger *log.Logger,
) ExerciseService {
	if logger == nil {
		logger = defaultLogger("exercises")
	}
	return &exerciseService{
		exercises: exercises,
		workouts:  workouts,
		gateway:   gateway,
		oracle:    oracle,
		logger:    logger,
		clock:     defaultClock,
		newID:     defaultIDGenerator,
	}
}

func validateExerciseCounts(op string, sets, reps, restSeconds int, weightKg float64) error {
	if sets <= 0 {
		return syncerr.New(syncerr.KindValidation, op).With("field", "sets").With("reason", "must be positive")
	}
	if reps <= 0 {
		return syncerr.New(syncerr.KindValidation, op).With("field", "reps").With("reason", "must be positive")
	}
	if weightKg < 0 {
		return syncerr.New(syncerr.KindValidation, op).With("field", "weightKg").With("reason", "negative")
	}
	if restSeconds < 0 {
		return syncerr.New(syncerr.KindValidation, op).With("field", "restSeconds").With("reason", "negative")
	}
	return nil
}

// Create appends the exercise at the end of the workout's list as
// PENDING_CREATE, then pushes when online and the parent is already synced.
func (s *exerciseService) Create(ctx context.Context, workoutID string, input ExerciseInput) (*domain.WorkoutExercise, error) {
	const op = "exercise.create"

	if err := validateName(op, input.ExerciseName); err != nil {
		return nil, err
	}
	if err := validateExerciseCounts(op, input.Sets, input.Reps, input.RestSeconds, input.WeightKg); err != nil {
		return nil, err
	}

	parent, err := s.workouts.GetByID(ctx, workoutID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, syncerr.New(syncerr.KindNotFound, op).With("workoutId", workoutID)
	}
	if err != nil {
		return nil, syncerr.Wrap(syncerr.KindStorage, op, err)
	}

	count, err := s.exercises.Count(ctx, workoutID)
	if err != nil {
		return nil, syncerr.Wrap(syncerr.KindStorage, op, err)
	}

	now := s.clock()
	exercise := &domain.WorkoutExercise{
		ID:             s.newID(),
		WorkoutID:      workoutID,
		ProfileID:      parent.ProfileID,
		ExerciseName:   input.ExerciseName,
		Sets:           input.Sets,
		Reps:           input.Reps,
		WeightKg:       input.WeightKg,
		RestSeconds:    input.RestSeconds,
		Position:       count,
		SyncStatus:     domain.SyncStatusPendingCreate,
		LocalCreatedAt: now,
		LocalUpdatedAt: now,
	}

	if err := s.exercises.Upsert(ctx, exercise); err != nil {
		return nil, syncerr.Wrap(syncerr.KindStorage, op, err)
	}

	if s.oracle.IsOnline() && parent.SyncStatus != domain.SyncStatusPendingCreate {
		// push returns the post-reconciliation ID: a successful create leaves
		// the row under the server-assigned ID, not the local UUID.
		if id, err := s.push(ctx, exercise); err != nil {
			s.logger.Printf("WARNING: immediate push of exercise %s failed, left pending: %v", exercise.ID, err)
		} else if updated, err := s.exercises.GetByID(ctx, id); err == nil {
			return updated, nil
		}
	}
	return exercise, nil
}

// UpdateFields applies the non-nil fields of update, preserving the
// PENDING_CREATE status of never-synced rows.
func (s *exerciseService) UpdateFields(ctx context.Context, id string, update ExerciseUpdate) (*domain.WorkoutExercise, error) {
	const op = "exercise.update"

	exercise, err := s.exercises.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, syncerr.New(syncerr.KindNotFound, op).With("id", id)
	}
	if err != nil {
		return nil, syncerr.Wrap(syncerr.KindStorage, op, err)
	}

	if update.ExerciseName != nil {
		if err := validateName(op, *update.ExerciseName); err != nil {
			return nil, err
		}
		exercise.ExerciseName = *update.ExerciseName
	}
	if update.Sets != nil {
		exercise.Sets = *update.Sets
	}
	if update.Reps != nil {
		exercise.Reps = *update.Reps
	}
	if update.WeightKg != nil {
		exercise.WeightKg = *update.WeightKg
	}
	if update.RestSeconds != nil {
		exercise.RestSeconds = *update.RestSeconds
	}
	if err := validateExerciseCounts(op, exercise.Sets, exercise.Reps, exercise.RestSeconds, exercise.WeightKg); err != nil {
		return nil, err
	}

	if exercise.SyncStatus != domain.SyncStatusPendingCreate {
		exercise.SyncStatus = domain.SyncStatusPendingUpdate
	}
	exercise.LocalUpdatedAt = s.clock()

	if err := s.exercises.Upsert(ctx, exercise); err != nil {
		return nil, syncerr.Wrap(syncerr.KindStorage, op, err)
	}

	if s.oracle.IsOnline() {
		if id, err := s.push(ctx, exercise); err != nil {
			s.logger.Printf("WARNING: immediate push of exercise %s failed, left pending: %v", exercise.ID, err)
		} else if updated, err := s.exercises.GetByID(ctx, id); err == nil {
			return updated, nil
		}
	}
	return exercise, nil
}

// Delete mirrors the workout rules: immediate local removal for never-synced
// rows, PENDING_DELETE tombstone otherwise.
func (s *exerciseService) Delete(ctx context.Context, id string) (bool, error) {
	const op = "exercise.delete"

	exercise, err := s.exercises.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return false, syncerr.New(syncerr.KindNotFound, op).With("id", id)
	}
	if err != nil {
		return false, syncerr.Wrap(syncerr.KindStorage, op, err)
	}

	if exercise.SyncStatus == domain.SyncStatusPendingCreate {
		if err := s.exercises.DeleteByID(ctx, id); err != nil {
			return false, syncerr.Wrap(syncerr.KindStorage, op, err)
		}
		return true, nil
	}

	exercise.SyncStatus = domain.SyncStatusPendingDelete
	exercise.LocalUpdatedAt = s.clock()
	if err := s.exercises.Upsert(ctx, exercise); err != nil {
		return false, syncerr.Wrap(syncerr.KindStorage, op, err)
	}

	if s.oracle.IsOnline() {
		if _, err := s.push(ctx, exercise); err != nil {
			s.logger.Printf("WARNING: immediate delete of exercise %s failed, left pending: %v", id, err)
		}
	}
	return true, nil
}

// Reorder moves an exercise within its workout; same contract as
// WorkoutService.Reorder.
func (s *exerciseService) Reorder(ctx context.Context, id string, newPosition int) error {
	const op = "exercise.reorder"

	exercise, err := s.exercises.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return syncerr.New(syncerr.KindNotFound, op).With("id", id)
	}
	if err != nil {
		return syncerr.Wrap(syncerr.KindStorage, op, err)
	}

	count, err := s.exercises.Count(ctx, exercise.WorkoutID)
	if err != nil {
		return syncerr.Wrap(syncerr.KindStorage, op, err)
	}
	if newPosition < 0 || newPosition >= count {
		return syncerr.New(syncerr.KindValidation, op).
			With("field", "position").
			With("reason", "out of range").
			With("max", count-1)
	}
	if newPosition == exercise.Position {
		return nil
	}

	if err := s.exercises.Reorder(ctx, id, newPosition); err != nil {
		return syncerr.Wrap(syncerr.KindStorage, op, err)
	}

	moved, err := s.exercises.GetByID(ctx, id)
	if err != nil {
		return syncerr.Wrap(syncerr.KindStorage, op, err)
	}
	if moved.SyncStatus != domain.SyncStatusPendingCreate {
		moved.SyncStatus = domain.SyncStatusPendingUpdate
	}
	moved.LocalUpdatedAt = s.clock()
	if err := s.exercises.Upsert(ctx, moved); err != nil {
		return syncerr.Wrap(syncerr.KindStorage, op, err)
	}

	if s.oracle.IsOnline() {
		if _, err := s.push(ctx, moved); err != nil {
			s.logger.Printf("WARNING: immediate push of reorder %s failed, left pending: %v", id, err)
		}
	}
	return nil
}

func (s *exerciseService) Get(ctx context.Context, id string) (*domain.WorkoutExercise, error) {
	exercise, err := s.exercises.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, syncerr.New(syncerr.KindNotFound, "exercise.get").With("id", id)
	}
	if err != nil {
		return nil, syncerr.Wrap(syncerr.KindStorage, "exercise.get", err)
	}
	return exercise, nil
}

func (s *exerciseService) List(ctx context.Context, workoutID string) ([]domain.WorkoutExercise, error) {
	list, err := s.exercises.ListByWorkout(ctx, workoutID)
	if err != nil {
		return nil, syncerr.Wrap(syncerr.KindStorage, "exercise.list", err)
	}
	return list, nil
}

func (s *exerciseService) Watch(ctx context.Context, workoutID string) <-chan []domain.WorkoutExercise {
	return s.exercises.Watch(ctx, workoutID)
}

// push sends one pending exercise to the backend, returning the ID the row
// lives under afterwards.
func (s *exerciseService) push(ctx context.Context, exercise *domain.WorkoutExercise) (string, error) {
	return pushExercise(ctx, s.exercises, s.gateway, exercise)
}
