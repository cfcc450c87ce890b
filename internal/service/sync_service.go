package service

import (
	"context"
	"log"
	"time"

	"gymsync/internal/domain"
	"gymsync/internal/remote"
	"gymsync/internal/repository"
	"gymsync/internal/syncerr"
)

// SyncGateway is the full remote surface the bulk sync pass needs.
// *remote.Client satisfies it.
type SyncGateway interface {
	ProgramGateway
	WorkoutGateway
	ExerciseGateway
}

// SyncReport summarizes one bulk sync pass.
type SyncReport struct {
	Synced int // pending items confirmed by the server this pass
	Failed int // pending items that errored and stay queued
}

// PendingSummary is a point-in-time snapshot of the outstanding queue,
// surfaced by the status command.
type PendingSummary struct {
	Programs   int
	Workouts   int
	Exercises  int
	LastSyncAt *time.Time
}

func (p PendingSummary) Total() int { return p.Programs + p.Workouts + p.Exercises }

// SyncService drains the pending queue and reconciles the local store with
// the server.
type SyncService interface {
	// SyncAllPending pushes every pending row, parents before children, with
	// per-item failure isolation: one rejected item is logged and skipped,
	// the rest of the pass continues. It only returns an error when the
	// device is offline at the start of the pass.
	SyncAllPending(ctx context.Context, profileID string) (SyncReport, error)

	// RefreshFromServer pulls the server state and merges it into the local
	// store without clobbering unsynced local work.
	RefreshFromServer(ctx context.Context, profileID string) error

	// Sync is a full pass: push pending, then refresh. Used by the scheduler.
	Sync(ctx context.Context, profileID string) (SyncReport, error)

	Pending(ctx context.Context) (PendingSummary, error)
}

type syncService struct {
	programs  repository.ProgramRepository
	workouts  repository.WorkoutRepository
	exercises repository.ExerciseRepository
	meta      repository.MetaRepository
	gateway   SyncGateway
	oracle    connectivityOracle
	logger    *log.Logger
	clock     Clock
}

// NewSyncService creates a new instance of syncService.
func NewSyncService(
	programs repository.ProgramRepository,
	workouts repository.WorkoutRepository,
	exercises repository.ExerciseRepository,
	meta repository.MetaRepository,
	gateway SyncGateway,
	oracle connectivityOracle,
	logger *log.Logger,
) SyncService {
	if logger == nil {
		logger = defaultLogger("sync")
	}
	return &syncService{
		programs:  programs,
		workouts:  workouts,
		exercises: exercises,
		meta:      meta,
		gateway:   gateway,
		oracle:    oracle,
		logger:    logger,
		clock:     defaultClock,
	}
}

// SyncAllPending walks the queue in dependency order. Each tier is re-listed
// after the previous one so that IDs rewritten by a parent's create cascade
// are already visible when the children are pushed.
func (s *syncService) SyncAllPending(ctx context.Context, profileID string) (SyncReport, error) {
	const op = "sync.all"
	var report SyncReport

	if !s.oracle.IsOnline() {
		return report, syncerr.New(syncerr.KindNetworkUnavailable, op).With("reason", "offline")
	}

	// 1. Programs first: workouts cannot be created under a program the
	// server has never seen.
	pendingPrograms, err := s.programs.ListByStatus(ctx, domain.PendingStatuses()...)
	if err != nil {
		return report, syncerr.Wrap(syncerr.KindStorage, op, err)
	}
	for i := range pendingPrograms {
		p := &pendingPrograms[i]
		if _, err := pushProgram(ctx, s.programs, s.gateway, p); err != nil {
			report.Failed++
			s.logger.Printf("WARNING: program %s (%s) not synced: %v", p.ID, p.SyncStatus, err)
			continue
		}
		report.Synced++
	}

	// 2. Workouts, re-listed so program ID cascades are fresh. A workout
	// whose parent is still unsent stays queued for the next pass.
	pendingWorkouts, err := s.workouts.ListByStatus(ctx, domain.PendingStatuses()...)
	if err != nil {
		return report, syncerr.Wrap(syncerr.KindStorage, op, err)
	}
	for i := range pendingWorkouts {
		w := &pendingWorkouts[i]
		if s.parentProgramUnsent(ctx, w.ProgramID) {
			s.logger.Printf("workout %s deferred: program %s not created remotely yet", w.ID, w.ProgramID)
			continue
		}
		if _, err := pushWorkout(ctx, s.workouts, s.gateway, w); err != nil {
			report.Failed++
			s.logger.Printf("WARNING: workout %s (%s) not synced: %v", w.ID, w.SyncStatus, err)
			continue
		}
		report.Synced++
	}

	// 3. Exercises last, same discipline.
	pendingExercises, err := s.exercises.ListByStatus(ctx, domain.PendingStatuses()...)
	if err != nil {
		return report, syncerr.Wrap(syncerr.KindStorage, op, err)
	}
	for i := range pendingExercises {
		e := &pendingExercises[i]
		if s.parentWorkoutUnsent(ctx, e.WorkoutID) {
			s.logger.Printf("exercise %s deferred: workout %s not created remotely yet", e.ID, e.WorkoutID)
			continue
		}
		if _, err := pushExercise(ctx, s.exercises, s.gateway, e); err != nil {
			report.Failed++
			s.logger.Printf("WARNING: exercise %s (%s) not synced: %v", e.ID, e.SyncStatus, err)
			continue
		}
		report.Synced++
	}

	s.stampLastSync(ctx)
	s.logger.Printf("push pass done: %d synced, %d failed", report.Synced, report.Failed)
	return report, nil
}

// parentProgramUnsent reports whether the workout's parent program is still
// waiting for its own remote create.
func (s *syncService) parentProgramUnsent(ctx context.Context, programID string) bool {
	parent, err := s.programs.GetByID(ctx, programID)
	if err != nil {
		return false
	}
	return parent.SyncStatus == domain.SyncStatusPendingCreate
}

func (s *syncService) parentWorkoutUnsent(ctx context.Context, workoutID string) bool {
	parent, err := s.workouts.GetByID(ctx, workoutID)
	if err != nil {
		return false
	}
	return parent.SyncStatus == domain.SyncStatusPendingCreate
}

// RefreshFromServer merges the server's view into the local store. The merge
// never touches a local row with pending changes: the next push pass settles
// those, and last local edit wins. Local SYNCED rows the server no longer
// returns are deleted, since a synced row's only source of truth is remote.
func (s *syncService) RefreshFromServer(ctx context.Context, profileID string) error {
	const op = "sync.refresh"

	if !s.oracle.IsOnline() {
		return syncerr.New(syncerr.KindNetworkUnavailable, op).With("reason", "offline")
	}

	remotePrograms, err := s.gateway.ListPrograms(ctx, profileID)
	if err != nil {
		return syncerr.Wrap(syncerr.KindOf(err), op, err)
	}

	localPrograms, err := s.programs.ListByProfile(ctx, profileID)
	if err != nil {
		return syncerr.Wrap(syncerr.KindStorage, op, err)
	}
	localByID := make(map[string]*domain.TrainingProgram, len(localPrograms))
	for i := range localPrograms {
		localByID[localPrograms[i].ID] = &localPrograms[i]
	}

	remoteSeen := make(map[string]bool, len(remotePrograms))
	for i := range remotePrograms {
		rp := &remotePrograms[i]
		remoteSeen[rp.ID] = true

		local, ok := localByID[rp.ID]
		if ok && local.SyncStatus == domain.SyncStatusPendingDelete {
			// Locally deleted; do not resurrect it or its children.
			continue
		}
		if !ok || local.SyncStatus == domain.SyncStatusSynced {
			merged := programFromRemote(rp, s.clock())
			if ok {
				merged.LocalCreatedAt = local.LocalCreatedAt
			}
			if err := s.programs.Upsert(ctx, merged); err != nil {
				s.logger.Printf("WARNING: refresh of program %s failed: %v", rp.ID, err)
				continue
			}
		}
		// A parent preserved for a pending edit still gets its children
		// refreshed: remote-only workouts must not wait on the parent push.
		if err := s.refreshWorkouts(ctx, rp.ID); err != nil {
			s.logger.Printf("WARNING: refresh of workouts for program %s failed: %v", rp.ID, err)
		}
	}

	// Synced rows the server dropped are gone for real.
	for i := range localPrograms {
		lp := &localPrograms[i]
		if lp.SyncStatus == domain.SyncStatusSynced && !remoteSeen[lp.ID] {
			if err := s.programs.DeleteByID(ctx, lp.ID); err != nil {
				s.logger.Printf("WARNING: removing server-deleted program %s failed: %v", lp.ID, err)
			}
		}
	}

	s.stampLastSync(ctx)
	return nil
}

func (s *syncService) refreshWorkouts(ctx context.Context, programID string) error {
	remoteWorkouts, err := s.gateway.ListWorkouts(ctx, programID)
	if err != nil {
		return err
	}
	localWorkouts, err := s.workouts.ListByProgram(ctx, programID)
	if err != nil {
		return err
	}
	localByID := make(map[string]*domain.Workout, len(localWorkouts))
	for i := range localWorkouts {
		localByID[localWorkouts[i].ID] = &localWorkouts[i]
	}

	remoteSeen := make(map[string]bool, len(remoteWorkouts))
	for i := range remoteWorkouts {
		rw := &remoteWorkouts[i]
		remoteSeen[rw.ID] = true

		local, ok := localByID[rw.ID]
		if ok && local.SyncStatus == domain.SyncStatusPendingDelete {
			continue
		}
		if !ok || local.SyncStatus == domain.SyncStatusSynced {
			merged := workoutFromRemote(rw, programID, s.clock())
			if ok {
				merged.LocalCreatedAt = local.LocalCreatedAt
			}
			if err := s.workouts.Upsert(ctx, merged); err != nil {
				s.logger.Printf("WARNING: refresh of workout %s failed: %v", rw.ID, err)
				continue
			}
		}
		if err := s.refreshExercises(ctx, rw.ID); err != nil {
			s.logger.Printf("WARNING: refresh of exercises for workout %s failed: %v", rw.ID, err)
		}
	}

	for i := range localWorkouts {
		lw := &localWorkouts[i]
		if lw.SyncStatus == domain.SyncStatusSynced && !remoteSeen[lw.ID] {
			if err := s.workouts.DeleteByID(ctx, lw.ID); err != nil {
				s.logger.Printf("WARNING: removing server-deleted workout %s failed: %v", lw.ID, err)
			}
		}
	}
	return nil
}

func (s *syncService) refreshExercises(ctx context.Context, workoutID string) error {
	remoteExercises, err := s.gateway.ListExercises(ctx, workoutID)
	if err != nil {
		return err
	}
	localExercises, err := s.exercises.ListByWorkout(ctx, workoutID)
	if err != nil {
		return err
	}
	localByID := make(map[string]*domain.WorkoutExercise, len(localExercises))
	for i := range localExercises {
		localByID[localExercises[i].ID] = &localExercises[i]
	}

	remoteSeen := make(map[string]bool, len(remoteExercises))
	for i := range remoteExercises {
		re := &remoteExercises[i]
		remoteSeen[re.ID] = true

		local, ok := localByID[re.ID]
		if ok && local.SyncStatus != domain.SyncStatusSynced {
			continue
		}
		merged := exerciseFromRemote(re, workoutID, s.clock())
		if ok {
			merged.LocalCreatedAt = local.LocalCreatedAt
		}
		if err := s.exercises.Upsert(ctx, merged); err != nil {
			s.logger.Printf("WARNING: refresh of exercise %s failed: %v", re.ID, err)
		}
	}

	for i := range localExercises {
		le := &localExercises[i]
		if le.SyncStatus == domain.SyncStatusSynced && !remoteSeen[le.ID] {
			if err := s.exercises.DeleteByID(ctx, le.ID); err != nil {
				s.logger.Printf("WARNING: removing server-deleted exercise %s failed: %v", le.ID, err)
			}
		}
	}
	return nil
}

// Sync runs the push pass and, when it succeeds, a refresh.
func (s *syncService) Sync(ctx context.Context, profileID string) (SyncReport, error) {
	report, err := s.SyncAllPending(ctx, profileID)
	if err != nil {
		return report, err
	}
	if err := s.RefreshFromServer(ctx, profileID); err != nil {
		return report, err
	}
	return report, nil
}

func (s *syncService) Pending(ctx context.Context) (PendingSummary, error) {
	const op = "sync.pending"
	var summary PendingSummary

	programs, err := s.programs.ListByStatus(ctx, domain.PendingStatuses()...)
	if err != nil {
		return summary, syncerr.Wrap(syncerr.KindStorage, op, err)
	}
	workouts, err := s.workouts.ListByStatus(ctx, domain.PendingStatuses()...)
	if err != nil {
		return summary, syncerr.Wrap(syncerr.KindStorage, op, err)
	}
	exercises, err := s.exercises.ListByStatus(ctx, domain.PendingStatuses()...)
	if err != nil {
		return summary, syncerr.Wrap(syncerr.KindStorage, op, err)
	}
	summary.Programs = len(programs)
	summary.Workouts = len(workouts)
	summary.Exercises = len(exercises)

	if raw, err := s.meta.Get(ctx, repository.MetaKeyLastSyncAt); err == nil && raw != "" {
		if at, err := time.Parse(time.RFC3339, raw); err == nil {
			summary.LastSyncAt = &at
		}
	}
	return summary, nil
}

func (s *syncService) stampLastSync(ctx context.Context) {
	at := s.clock().Format(time.RFC3339)
	if err := s.meta.Set(ctx, repository.MetaKeyLastSyncAt, at); err != nil {
		s.logger.Printf("WARNING: could not record last sync time: %v", err)
	}
}

// --- Conversions from wire types ---

func programFromRemote(rp *remote.Program, now time.Time) *domain.TrainingProgram {
	created, updated := rp.CreatedAt, rp.UpdatedAt
	return &domain.TrainingProgram{
		ID:              rp.ID,
		ProfileID:       rp.ProfileID,
		Name:            rp.Name,
		Description:     rp.Description,
		SyncStatus:      domain.SyncStatusSynced,
		LocalCreatedAt:  now,
		LocalUpdatedAt:  now,
		ServerCreatedAt: &created,
		ServerUpdatedAt: &updated,
	}
}

func workoutFromRemote(rw *remote.Workout, programID string, now time.Time) *domain.Workout {
	created, updated := rw.CreatedAt, rw.UpdatedAt
	return &domain.Workout{
		ID:              rw.ID,
		ProgramID:       programID,
		ProfileID:       rw.ProfileID,
		Name:            rw.Name,
		Notes:           rw.Notes,
		Position:        rw.Position,
		SyncStatus:      domain.SyncStatusSynced,
		LocalCreatedAt:  now,
		LocalUpdatedAt:  now,
		ServerCreatedAt: &created,
		ServerUpdatedAt: &updated,
	}
}

func exerciseFromRemote(re *remote.Exercise, workoutID string, now time.Time) *domain.WorkoutExercise {
	created, updated := re.CreatedAt, re.UpdatedAt
	return &domain.WorkoutExercise{
		ID:              re.ID,
		WorkoutID:       workoutID,
		ProfileID:       re.ProfileID,
		ExerciseName:    re.ExerciseName,
		Sets:            re.Sets,
		Reps:            re.Reps,
		WeightKg:        re.WeightKg,
		RestSeconds:     re.RestSeconds,
		Position:        re.Position,
		SyncStatus:      domain.SyncStatusSynced,
		LocalCreatedAt:  now,
		LocalUpdatedAt:  now,
		ServerCreatedAt: &created,
		ServerUpdatedAt: &updated,
	}
}

// --- Push helpers shared with the per-entity services ---

// pushProgram sends one pending program to the backend, dispatched on the
// row's sync status, and records the outcome locally. It returns the ID the
// row lives under after the push: a create adopts the server-assigned ID, so
// the caller's local UUID is stale. Empty after a delete.
func pushProgram(ctx context.Context, programs repository.ProgramRepository, gateway ProgramGateway, program *domain.TrainingProgram) (string, error) {
	payload := remote.ProgramPayload{
		ProfileID:   program.ProfileID,
		Name:        program.Name,
		Description: program.Description,
	}

	switch program.SyncStatus {
	case domain.SyncStatusPendingCreate:
		created, err := gateway.CreateProgram(ctx, payload)
		if err != nil {
			return "", err
		}
		// Adopt the server identity atomically; child workouts follow.
		if err := programs.UpdateIDAndStatus(ctx, program.ID, created.ID,
			domain.SyncStatusSynced, &created.CreatedAt, &created.UpdatedAt); err != nil {
			return "", err
		}
		return created.ID, nil

	case domain.SyncStatusPendingUpdate:
		updated, err := gateway.UpdateProgram(ctx, program.ID, payload)
		if err != nil {
			return "", err
		}
		if err := programs.MarkSynced(ctx, program.ID, &updated.CreatedAt, &updated.UpdatedAt); err != nil {
			return "", err
		}
		return program.ID, nil

	case domain.SyncStatusPendingDelete:
		// The gateway treats 404 as success, so a record the server already
		// dropped still completes the local removal.
		if err := gateway.DeleteProgram(ctx, program.ID); err != nil {
			return "", err
		}
		return "", programs.DeleteByID(ctx, program.ID)
	}
	return program.ID, nil
}

func pushWorkout(ctx context.Context, workouts repository.WorkoutRepository, gateway WorkoutGateway, workout *domain.Workout) (string, error) {
	payload := remote.WorkoutPayload{
		ProfileID: workout.ProfileID,
		Name:      workout.Name,
		Notes:     workout.Notes,
		Position:  workout.Position,
	}

	switch workout.SyncStatus {
	case domain.SyncStatusPendingCreate:
		created, err := gateway.CreateWorkout(ctx, workout.ProgramID, payload)
		if err != nil {
			return "", err
		}
		// Child exercises are repointed at the server ID in the same tx.
		if err := workouts.UpdateIDAndStatus(ctx, workout.ID, created.ID,
			domain.SyncStatusSynced, &created.CreatedAt, &created.UpdatedAt); err != nil {
			return "", err
		}
		return created.ID, nil

	case domain.SyncStatusPendingUpdate:
		updated, err := gateway.UpdateWorkout(ctx, workout.ID, payload)
		if err != nil {
			return "", err
		}
		if err := workouts.MarkSynced(ctx, workout.ID, &updated.CreatedAt, &updated.UpdatedAt); err != nil {
			return "", err
		}
		return workout.ID, nil

	case domain.SyncStatusPendingDelete:
		if err := gateway.DeleteWorkout(ctx, workout.ID); err != nil {
			return "", err
		}
		return "", workouts.DeleteByID(ctx, workout.ID)
	}
	return workout.ID, nil
}

func pushExercise(ctx context.Context, exercises repository.ExerciseRepository, gateway ExerciseGateway, exercise *domain.WorkoutExercise) (string, error) {
	payload := remote.ExercisePayload{
		ProfileID:    exercise.ProfileID,
		ExerciseName: exercise.ExerciseName,
		Sets:         exercise.Sets,
		Reps:         exercise.Reps,
		WeightKg:     exercise.WeightKg,
		RestSeconds:  exercise.RestSeconds,
		Position:     exercise.Position,
	}

	switch exercise.SyncStatus {
	case domain.SyncStatusPendingCreate:
		created, err := gateway.CreateExercise(ctx, exercise.WorkoutID, payload)
		if err != nil {
			return "", err
		}
		if err := exercises.UpdateIDAndStatus(ctx, exercise.ID, created.ID,
			domain.SyncStatusSynced, &created.CreatedAt, &created.UpdatedAt); err != nil {
			return "", err
		}
		return created.ID, nil

	case domain.SyncStatusPendingUpdate:
		updated, err := gateway.UpdateExercise(ctx, exercise.ID, payload)
		if err != nil {
			return "", err
		}
		if err := exercises.MarkSynced(ctx, exercise.ID, &updated.CreatedAt, &updated.UpdatedAt); err != nil {
			return "", err
		}
		return exercise.ID, nil

	case domain.SyncStatusPendingDelete:
		if err := gateway.DeleteExercise(ctx, exercise.ID); err != nil {
			return "", err
		}
		return "", exercises.DeleteByID(ctx, exercise.ID)
	}
	return exercise.ID, nil
}
