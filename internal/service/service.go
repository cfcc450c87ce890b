// Package service implements the offline-first sync engine. Every operation
// commits to the local store first and treats the network as an optimization:
// if the remote call cannot happen or fails, the entity's sync status is the
// durable record of what still needs pushing, and the background scheduler
// retries it later.
package service

import (
	"context"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"gymsync/internal/remote"
	"gymsync/internal/syncerr"
)

// Field length bounds shared by all entities.
const (
	maxNameLength = 100
	maxTextLength = 1000
)

// Clock supplies the local wall clock; injected for tests.
type Clock func() time.Time

// IDGenerator mints local entity IDs; injected for tests.
type IDGenerator func() string

func defaultClock() time.Time { return time.Now().UTC() }

func defaultIDGenerator() string { return uuid.NewString() }

func defaultLogger(component string) *log.Logger {
	return log.New(log.Writer(), "["+component+"] ", log.LstdFlags)
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// validateName enforces the non-blank and length rules for display names.
func validateName(op, name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return syncerr.New(syncerr.KindValidation, op).With("field", "name").With("reason", "blank")
	}
	if len(name) > maxNameLength {
		return syncerr.New(syncerr.KindValidation, op).With("field", "name").With("reason", "too long")
	}
	return nil
}

func validateText(op, field, text string) error {
	if len(text) > maxTextLength {
		return syncerr.New(syncerr.KindValidation, op).With("field", field).With("reason", "too long")
	}
	return nil
}

// ProgramGateway is the slice of the remote API the program service needs.
// *remote.Client satisfies it.
type ProgramGateway interface {
	CreateProgram(ctx context.Context, p remote.ProgramPayload) (*remote.Program, error)
	UpdateProgram(ctx context.Context, id string, p remote.ProgramPayload) (*remote.Program, error)
	DeleteProgram(ctx context.Context, id string) error
	ListPrograms(ctx context.Context, profileID string) ([]remote.Program, error)
}

// WorkoutGateway is the slice of the remote API the workout service needs.
type WorkoutGateway interface {
	CreateWorkout(ctx context.Context, programID string, w remote.WorkoutPayload) (*remote.Workout, error)
	UpdateWorkout(ctx context.Context, id string, w remote.WorkoutPayload) (*remote.Workout, error)
	DeleteWorkout(ctx context.Context, id string) error
	ListWorkouts(ctx context.Context, programID string) ([]remote.Workout, error)
}

// ExerciseGateway is the slice of the remote API the exercise service needs.
type ExerciseGateway interface {
	CreateExercise(ctx context.Context, workoutID string, e remote.ExercisePayload) (*remote.Exercise, error)
	UpdateExercise(ctx context.Context, id string, e remote.ExercisePayload) (*remote.Exercise, error)
	DeleteExercise(ctx context.Context, id string) error
	ListExercises(ctx context.Context, workoutID string) ([]remote.Exercise, error)
}

// MediaGateway is the slice of the remote API the media service needs.
type MediaGateway interface {
	PresignUpload(ctx context.Context, req remote.PresignRequest) (*remote.PresignResponse, error)
	UploadFile(ctx context.Context, putURL, contentType string, body io.Reader, size int64) error
}
