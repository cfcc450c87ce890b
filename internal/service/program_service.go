package service

import (
	"context"
	"errors"
	"log"

	"gymsync/internal/domain"
	"gymsync/internal/repository"
	"gymsync/internal/syncerr"
)

// ProgramUpdate carries a partial update: nil fields are left unchanged.
type ProgramUpdate struct {
	Name        *string
	Description *string
}

// ProgramService is the sync engine's entry point for training programs.
//
// All writes are local-first: a successful local commit means the operation
// succeeds, regardless of what the network does afterwards. Callers should
// read "success" as "accepted, sync pending", not "confirmed on the server".
type ProgramService interface {
	Create(ctx context.Context, profileID, name, description string) (*domain.TrainingProgram, error)
	UpdateFields(ctx context.Context, id string, update ProgramUpdate) (*domain.TrainingProgram, error)
	Delete(ctx context.Context, id string) (bool, error)
	Get(ctx context.Context, id string) (*domain.TrainingProgram, error)
	List(ctx context.Context, profileID string) ([]domain.TrainingProgram, error)
	// Watch streams the profile's program list, re-emitting on every change.
	Watch(ctx context.Context, profileID string) <-chan []domain.TrainingProgram
}

// programService implements the ProgramService interface.
type programService struct {
	programs repository.ProgramRepository
	gateway  ProgramGateway
	oracle   connectivityOracle
	logger   *log.Logger
	clock    Clock
	newID    IDGenerator
}

// connectivityOracle is duplicated here to keep the service package free of a
// hard dependency on the prober implementation.
type connectivityOracle interface {
	IsOnline() bool
}

// NewProgramService creates a new instance of programService.
func NewProgramService(
	programs repository.ProgramRepository,
	gateway ProgramGateway,
	oracle connectivityOracle,
	logger *log.Logger,
) ProgramService {
	if logger == nil {
		logger = defaultLogger("programs")
	}
	return &programService{
		programs: programs,
		gateway:  gateway,
		oracle:   oracle,
		logger:   logger,
		clock:    defaultClock,
		newID:    defaultIDGenerator,
	}
}

// Create validates input, commits the program locally as PENDING_CREATE, and
// then tries an immediate remote push when online. Remote failure is not an
// error: the pending row is the retry queue.
func (s *programService) Create(ctx context.Context, profileID, name, description string) (*domain.TrainingProgram, error) {
	const op = "program.create"

	if profileID == "" {
		return nil, syncerr.New(syncerr.KindValidation, op).With("field", "profileId").With("reason", "blank")
	}
	if err := validateName(op, name); err != nil {
		return nil, err
	}
	if err := validateText(op, "description", description); err != nil {
		return nil, err
	}

	now := s.clock()
	program := &domain.TrainingProgram{
		ID:             s.newID(),
		ProfileID:      profileID,
		Name:           name,
		Description:    description,
		SyncStatus:     domain.SyncStatusPendingCreate,
		LocalCreatedAt: now,
		LocalUpdatedAt: now,
	}

	// The local write is the operation; everything after is best-effort.
	if err := s.programs.Upsert(ctx, program); err != nil {
		return nil, syncerr.Wrap(syncerr.KindStorage, op, err)
	}

	if s.oracle.IsOnline() {
		// push returns the row's ID after reconciliation: a successful create
		// replaces the local UUID with the server-assigned one.
		if id, err := s.push(ctx, program); err != nil {
			s.logger.Printf("WARNING: immediate push of program %s failed, left pending: %v", program.ID, err)
		} else if updated, err := s.programs.GetByID(ctx, id); err == nil {
			return updated, nil
		}
	}
	return program, nil
}

// UpdateFields applies only the non-nil fields of update. A program still in
// PENDING_CREATE stays PENDING_CREATE: the unsent create will carry the new
// field values when it is finally pushed.
func (s *programService) UpdateFields(ctx context.Context, id string, update ProgramUpdate) (*domain.TrainingProgram, error) {
	const op = "program.update"

	program, err := s.programs.GetByID(ctx, id)
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
		program.Name = *update.Name
	}
	if update.Description != nil {
		if err := validateText(op, "description", *update.Description); err != nil {
			return nil, err
		}
		program.Description = *update.Description
	}

	if program.SyncStatus != domain.SyncStatusPendingCreate {
		program.SyncStatus = domain.SyncStatusPendingUpdate
	}
	program.LocalUpdatedAt = s.clock()

	if err := s.programs.Upsert(ctx, program); err != nil {
		return nil, syncerr.Wrap(syncerr.KindStorage, op, err)
	}

	if s.oracle.IsOnline() {
		// A PENDING_CREATE row pushed here adopts the server ID, so re-read
		// by the ID the push reports.
		if id, err := s.push(ctx, program); err != nil {
			s.logger.Printf("WARNING: immediate push of program %s failed, left pending: %v", program.ID, err)
		} else if updated, err := s.programs.GetByID(ctx, id); err == nil {
			return updated, nil
		}
	}
	return program, nil
}

// Delete removes a never-synced program immediately; otherwise it marks the
// row PENDING_DELETE and attempts the remote delete, only removing the local
// row once the server confirms (or reports the record already gone).
func (s *programService) Delete(ctx context.Context, id string) (bool, error) {
	const op = "program.delete"

	program, err := s.programs.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return false, syncerr.New(syncerr.KindNotFound, op).With("id", id)
	}
	if err != nil {
		return false, syncerr.Wrap(syncerr.KindStorage, op, err)
	}

	// Never synced: the server has no record to delete.
	if program.SyncStatus == domain.SyncStatusPendingCreate {
		if err := s.programs.DeleteByID(ctx, id); err != nil {
			return false, syncerr.Wrap(syncerr.KindStorage, op, err)
		}
		return true, nil
	}

	program.SyncStatus = domain.SyncStatusPendingDelete
	program.LocalUpdatedAt = s.clock()
	if err := s.programs.Upsert(ctx, program); err != nil {
		return false, syncerr.Wrap(syncerr.KindStorage, op, err)
	}

	if s.oracle.IsOnline() {
		if _, err := s.push(ctx, program); err != nil {
			s.logger.Printf("WARNING: immediate delete of program %s failed, left pending: %v", id, err)
		}
	}
	return true, nil
}

func (s *programService) Get(ctx context.Context, id string) (*domain.TrainingProgram, error) {
	program, err := s.programs.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, syncerr.New(syncerr.KindNotFound, "program.get").With("id", id)
	}
	if err != nil {
		return nil, syncerr.Wrap(syncerr.KindStorage, "program.get", err)
	}
	return program, nil
}

func (s *programService) List(ctx context.Context, profileID string) ([]domain.TrainingProgram, error) {
	list, err := s.programs.ListByProfile(ctx, profileID)
	if err != nil {
		return nil, syncerr.Wrap(syncerr.KindStorage, "program.list", err)
	}
	return list, nil
}

func (s *programService) Watch(ctx context.Context, profileID string) <-chan []domain.TrainingProgram {
	return s.programs.Watch(ctx, profileID)
}

// push sends one pending program to the backend and records the outcome,
// returning the ID the row lives under afterwards.
func (s *programService) push(ctx context.Context, program *domain.TrainingProgram) (string, error) {
	return pushProgram(ctx, s.programs, s.gateway, program)
}
