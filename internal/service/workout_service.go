package service

import (
	"context"
	"errors"
	"log"

	"gymsync/internal/domain"
	"gymsync/internal/repository"
	"gymsync/internal/syncerr"
)

// WorkoutUpdate carries a partial update: nil fields are left unchanged.
// Position changes go through Reorder, not here.
type WorkoutUpdate struct {
	Name  *string
	Notes *string
}

// WorkoutService manages workouts within a program, including their dense
// position ordering. Same local-first contract as ProgramService.
type WorkoutService interface {
	Create(ctx context.Context, programID, profileID, name, notes string) (*domain.Workout, error)
	UpdateFields(ctx context.Context, id string, update WorkoutUpdate) (*domain.Workout, error)
	Delete(ctx context.Context, id string) (bool, error)
	// Reorder moves the workout to newPosition within its program. Valid
	// positions are 0 through N-1 where N is the sibling count.
	Reorder(ctx context.Context, id string, newPosition int) error
	Get(ctx context.Context, id string) (*domain.Workout, error)
	List(ctx context.Context, programID string) ([]domain.Workout, error)
	Watch(ctx context.Context, programID string) <-chan []domain.Workout
}

type workoutService struct {
	workouts repository.WorkoutRepository
	programs repository.ProgramRepository
	gateway  WorkoutGateway
	oracle   connectivityOracle
	logger   *log.Logger
	clock    Clock
	newID    IDGenerator
}

// NewWorkoutService creates a new instance of workoutService. The program
// repository is consulted so workouts cannot be created under a missing parent.
func NewWorkoutService(
	workouts repository.WorkoutRepository,
	programs repository.ProgramRepository,
	gateway WorkoutGateway,
	oracle connectivityOracle,
	logger *log.Logger,
) WorkoutService {
	if logger == nil {
		logger = defaultLogger("workouts")
	}
	return &workoutService{
		workouts: workouts,
		programs: programs,
		gateway:  gateway,
		oracle:   oracle,
		logger:   logger,
		clock:    defaultClock,
		newID:    defaultIDGenerator,
	}
}

// Create appends a workout at the end of the program's list (position N) and
// commits it as PENDING_CREATE before any network activity.
func (s *workoutService) Create(ctx context.Context, programID, profileID, name, notes string) (*domain.Workout, error) {
	const op = "workout.create"

	if err := validateName(op, name); err != nil {
		return nil, err
	}
	if err := validateText(op, "notes", notes); err != nil {
		return nil, err
	}

	parent, err := s.programs.GetByID(ctx, programID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, syncerr.New(syncerr.KindNotFound, op).With("programId", programID)
	}
	if err != nil {
		return nil, syncerr.Wrap(syncerr.KindStorage, op, err)
	}
	if profileID == "" {
		profileID = parent.ProfileID
	}

	count, err := s.workouts.Count(ctx, programID)
	if err != nil {
		return nil, syncerr.Wrap(syncerr.KindStorage, op, err)
	}

	now := s.clock()
	workout := &domain.Workout{
		ID:             s.newID(),
		ProgramID:      programID,
		ProfileID:      profileID,
		Name:           name,
		Notes:          notes,
		Position:       count,
		SyncStatus:     domain.SyncStatusPendingCreate,
		LocalCreatedAt: now,
		LocalUpdatedAt: now,
	}

	if err := s.workouts.Upsert(ctx, workout); err != nil {
		return nil, syncerr.Wrap(syncerr.KindStorage, op, err)
	}

	// No point pushing a child whose parent has not been created remotely:
	// the server would reject the unknown program ID.
	if s.oracle.IsOnline() && parent.SyncStatus != domain.SyncStatusPendingCreate {
		// push returns the post-reconciliation ID: a successful create leaves
		// the row under the server-assigned ID, not the local UUID.
		if id, err := s.push(ctx, workout); err != nil {
			s.logger.Printf("WARNING: immediate push of workout %s failed, left pending: %v", workout.ID, err)
		} else if updated, err := s.workouts.GetByID(ctx, id); err == nil {
			return updated, nil
		}
	}
	return workout, nil
}

// UpdateFields applies the non-nil fields of update, preserving the
// PENDING_CREATE status of never-synced rows.
func (s *workoutService) UpdateFields(ctx context.Context, id string, update WorkoutUpdate) (*domain.Workout, error) {
	const op = "workout.update"

	workout, err := s.workouts.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, syncerr.New(syncerr.KindNotFound, op).With("id", id)
	}
	if err != nil {
		return nil, syncerr.Wrap(syncerr.KindStorage, op, err)
	}

	if update.Name != nil {
		if err := validateName(op, *update.Name); err != nil {
			return nil, err
		}
		workout.Name = *update.Name
	}
	if update.Notes != nil {
		if err := validateText(op, "notes", *update.Notes); err != nil {
			return nil, err
		}
		workout.Notes = *update.Notes
	}

	if workout.SyncStatus != domain.SyncStatusPendingCreate {
		workout.SyncStatus = domain.SyncStatusPendingUpdate
	}
	workout.LocalUpdatedAt = s.clock()

	if err := s.workouts.Upsert(ctx, workout); err != nil {
		return nil, syncerr.Wrap(syncerr.KindStorage, op, err)
	}

	if s.oracle.IsOnline() {
		if id, err := s.push(ctx, workout); err != nil {
			s.logger.Printf("WARNING: immediate push of workout %s failed, left pending: %v", workout.ID, err)
		} else if updated, err := s.workouts.GetByID(ctx, id); err == nil {
			return updated, nil
		}
	}
	return workout, nil
}

// Delete follows the program rules: never-synced rows vanish locally, synced
// rows are tombstoned as PENDING_DELETE until the server confirms. Either
// way the sibling positions close ranks when the local row is removed.
func (s *workoutService) Delete(ctx context.Context, id string) (bool, error) {
	const op = "workout.delete"

	workout, err := s.workouts.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return false, syncerr.New(syncerr.KindNotFound, op).With("id", id)
	}
	if err != nil {
		return false, syncerr.Wrap(syncerr.KindStorage, op, err)
	}

	if workout.SyncStatus == domain.SyncStatusPendingCreate {
		if err := s.workouts.DeleteByID(ctx, id); err != nil {
			return false, syncerr.Wrap(syncerr.KindStorage, op, err)
		}
		return true, nil
	}

	workout.SyncStatus = domain.SyncStatusPendingDelete
	workout.LocalUpdatedAt = s.clock()
	if err := s.workouts.Upsert(ctx, workout); err != nil {
		return false, syncerr.Wrap(syncerr.KindStorage, op, err)
	}

	if s.oracle.IsOnline() {
		if _, err := s.push(ctx, workout); err != nil {
			s.logger.Printf("WARNING: immediate delete of workout %s failed, left pending: %v", id, err)
		}
	}
	return true, nil
}

// Reorder moves a workout to newPosition, shifting siblings in a single
// transaction. Only the moved row is marked pending: shifted siblings keep
// their status, and the server recomputes its own shifts when the move is
// pushed as a position update.
func (s *workoutService) Reorder(ctx context.Context, id string, newPosition int) error {
	const op = "workout.reorder"

	workout, err := s.workouts.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return syncerr.New(syncerr.KindNotFound, op).With("id", id)
	}
	if err != nil {
		return syncerr.Wrap(syncerr.KindStorage, op, err)
	}

	count, err := s.workouts.Count(ctx, workout.ProgramID)
	if err != nil {
		return syncerr.Wrap(syncerr.KindStorage, op, err)
	}
	if newPosition < 0 || newPosition >= count {
		return syncerr.New(syncerr.KindValidation, op).
			With("field", "position").
			With("reason", "out of range").
			With("max", count-1)
	}
	if newPosition == workout.Position {
		return nil
	}

	if err := s.workouts.Reorder(ctx, id, newPosition); err != nil {
		return syncerr.Wrap(syncerr.KindStorage, op, err)
	}

	// Re-read so the pending mark carries the new position.
	moved, err := s.workouts.GetByID(ctx, id)
	if err != nil {
		return syncerr.Wrap(syncerr.KindStorage, op, err)
	}
	if moved.SyncStatus != domain.SyncStatusPendingCreate {
		moved.SyncStatus = domain.SyncStatusPendingUpdate
	}
	moved.LocalUpdatedAt = s.clock()
	if err := s.workouts.Upsert(ctx, moved); err != nil {
		return syncerr.Wrap(syncerr.KindStorage, op, err)
	}

	if s.oracle.IsOnline() {
		if _, err := s.push(ctx, moved); err != nil {
			s.logger.Printf("WARNING: immediate push of reorder %s failed, left pending: %v", id, err)
		}
	}
	return nil
}

func (s *workoutService) Get(ctx context.Context, id string) (*domain.Workout, error) {
	workout, err := s.workouts.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, syncerr.New(syncerr.KindNotFound, "workout.get").With("id", id)
	}
	if err != nil {
		return nil, syncerr.Wrap(syncerr.KindStorage, "workout.get", err)
	}
	return workout, nil
}

func (s *workoutService) List(ctx context.Context, programID string) ([]domain.Workout, error) {
	list, err := s.workouts.ListByProgram(ctx, programID)
	if err != nil {
		return nil, syncerr.Wrap(syncerr.KindStorage, "workout.list", err)
	}
	return list, nil
}

func (s *workoutService) Watch(ctx context.Context, programID string) <-chan []domain.Workout {
	return s.workouts.Watch(ctx, programID)
}

// push sends one pending workout to the backend, returning the ID the row
// lives under afterwards.
func (s *workoutService) push(ctx context.Context, workout *domain.Workout) (string, error) {
	return pushWorkout(ctx, s.workouts, s.gateway, workout)
}
