package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gymsync/internal/domain"
	"gymsync/internal/repository"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testProgram(id, profileID string) *domain.TrainingProgram {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.TrainingProgram{
		ID:             id,
		ProfileID:      profileID,
		Name:           "Leg Day",
		SyncStatus:     domain.SyncStatusPendingCreate,
		LocalCreatedAt: now,
		LocalUpdatedAt: now,
	}
}

func testWorkout(id, programID string, position int) *domain.Workout {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.Workout{
		ID:             id,
		ProgramID:      programID,
		ProfileID:      "p1",
		Name:           "Workout " + id,
		Position:       position,
		SyncStatus:     domain.SyncStatusPendingCreate,
		LocalCreatedAt: now,
		LocalUpdatedAt: now,
	}
}

func TestProgramUpsertAndGet(t *testing.T) {
	db := testDB(t)
	repo := NewProgramRepository(db)
	ctx := context.Background()

	p := testProgram("u1", "p1")
	p.Description = "quads and hamstrings"
	if err := repo.Upsert(ctx, p); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := repo.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "Leg Day" || got.Description != "quads and hamstrings" {
		t.Errorf("unexpected fields: %+v", got)
	}
	if got.SyncStatus != domain.SyncStatusPendingCreate {
		t.Errorf("status = %s, want PENDING_CREATE", got.SyncStatus)
	}
	if got.ServerCreatedAt != nil {
		t.Error("PENDING_CREATE row must have no server timestamps")
	}

	// Upsert with the same ID replaces, never duplicates.
	p.Name = "Leg Day v2"
	if err := repo.Upsert(ctx, p); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	count, err := repo.Count(ctx, "p1")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestProgramGetMissing(t *testing.T) {
	db := testDB(t)
	repo := NewProgramRepository(db)

	_, err := repo.GetByID(context.Background(), "nope")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestProgramListByStatus(t *testing.T) {
	db := testDB(t)
	repo := NewProgramRepository(db)
	ctx := context.Background()

	a := testProgram("a", "p1")
	b := testProgram("b", "p1")
	b.SyncStatus = domain.SyncStatusSynced
	c := testProgram("c", "p1")
	c.SyncStatus = domain.SyncStatusPendingDelete
	for _, p := range []*domain.TrainingProgram{a, b, c} {
		if err := repo.Upsert(ctx, p); err != nil {
			t.Fatalf("Upsert %s: %v", p.ID, err)
		}
	}

	pending, err := repo.ListByStatus(ctx, domain.PendingStatuses()...)
	if err != nil {
		t.Fatalf("ListByStatus: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %d rows, want 2", len(pending))
	}
	for _, p := range pending {
		if !p.SyncStatus.Pending() {
			t.Errorf("row %s has non-pending status %s", p.ID, p.SyncStatus)
		}
	}
}

func TestProgramIDReconciliationCascades(t *testing.T) {
	db := testDB(t)
	programs := NewProgramRepository(db)
	workouts := NewWorkoutRepository(db)
	ctx := context.Background()

	if err := programs.Upsert(ctx, testProgram("u1", "p1")); err != nil {
		t.Fatalf("Upsert program: %v", err)
	}
	if err := workouts.Upsert(ctx, testWorkout("w1", "u1", 0)); err != nil {
		t.Fatalf("Upsert workout: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	err := programs.UpdateIDAndStatus(ctx, "u1", "srv-1", domain.SyncStatusSynced, &now, &now)
	if err != nil {
		t.Fatalf("UpdateIDAndStatus: %v", err)
	}

	// Old ID must be gone, new ID present and SYNCED with server timestamps.
	if _, err := programs.GetByID(ctx, "u1"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("old ID still resolves: %v", err)
	}
	got, err := programs.GetByID(ctx, "srv-1")
	if err != nil {
		t.Fatalf("GetByID new: %v", err)
	}
	if got.SyncStatus != domain.SyncStatusSynced {
		t.Errorf("status = %s, want SYNCED", got.SyncStatus)
	}
	if got.ServerCreatedAt == nil || !got.ServerCreatedAt.Equal(now) {
		t.Errorf("server_created_at = %v, want %v", got.ServerCreatedAt, now)
	}

	// The child workout must now reference the server ID.
	w, err := workouts.GetByID(ctx, "w1")
	if err != nil {
		t.Fatalf("GetByID workout: %v", err)
	}
	if w.ProgramID != "srv-1" {
		t.Errorf("workout.ProgramID = %s, want srv-1", w.ProgramID)
	}
}

func TestProgramIDReconciliationMissingRow(t *testing.T) {
	db := testDB(t)
	programs := NewProgramRepository(db)

	err := programs.UpdateIDAndStatus(context.Background(), "ghost", "srv-9",
		domain.SyncStatusSynced, nil, nil)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func assertPositions(t *testing.T, workouts []domain.Workout, want map[string]int) {
	t.Helper()
	if len(workouts) != len(want) {
		t.Fatalf("got %d workouts, want %d", len(workouts), len(want))
	}
	seen := make(map[int]bool)
	for _, w := range workouts {
		if seen[w.Position] {
			t.Errorf("duplicate position %d", w.Position)
		}
		seen[w.Position] = true
		if wantPos, ok := want[w.ID]; ok && w.Position != wantPos {
			t.Errorf("workout %s at position %d, want %d", w.ID, w.Position, wantPos)
		}
	}
	for i := 0; i < len(workouts); i++ {
		if !seen[i] {
			t.Errorf("positions not dense: missing %d", i)
		}
	}
}

func TestWorkoutReorderToFront(t *testing.T) {
	db := testDB(t)
	programs := NewProgramRepository(db)
	workouts := NewWorkoutRepository(db)
	ctx := context.Background()

	if err := programs.Upsert(ctx, testProgram("prog", "p1")); err != nil {
		t.Fatal(err)
	}
	for i, id := range []string{"w0", "w1", "w2"} {
		if err := workouts.Upsert(ctx, testWorkout(id, "prog", i)); err != nil {
			t.Fatal(err)
		}
	}

	// Move the last workout to the front: w2:0, w0:1, w1:2.
	if err := workouts.Reorder(ctx, "w2", 0); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	list, err := workouts.ListByProgram(ctx, "prog")
	if err != nil {
		t.Fatal(err)
	}
	assertPositions(t, list, map[string]int{"w2": 0, "w0": 1, "w1": 2})
	if list[0].ID != "w2" {
		t.Errorf("list not position-ordered: first is %s", list[0].ID)
	}
}

func TestWorkoutReorderToBack(t *testing.T) {
	db := testDB(t)
	programs := NewProgramRepository(db)
	workouts := NewWorkoutRepository(db)
	ctx := context.Background()

	if err := programs.Upsert(ctx, testProgram("prog", "p1")); err != nil {
		t.Fatal(err)
	}
	for i, id := range []string{"w0", "w1", "w2", "w3"} {
		if err := workouts.Upsert(ctx, testWorkout(id, "prog", i)); err != nil {
			t.Fatal(err)
		}
	}

	if err := workouts.Reorder(ctx, "w1", 3); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	list, err := workouts.ListByProgram(ctx, "prog")
	if err != nil {
		t.Fatal(err)
	}
	assertPositions(t, list, map[string]int{"w0": 0, "w2": 1, "w3": 2, "w1": 3})
}

func TestWorkoutDeleteClosesPositionGap(t *testing.T) {
	db := testDB(t)
	programs := NewProgramRepository(db)
	workouts := NewWorkoutRepository(db)
	ctx := context.Background()

	if err := programs.Upsert(ctx, testProgram("prog", "p1")); err != nil {
		t.Fatal(err)
	}
	for i, id := range []string{"w0", "w1", "w2"} {
		if err := workouts.Upsert(ctx, testWorkout(id, "prog", i)); err != nil {
			t.Fatal(err)
		}
	}

	if err := workouts.DeleteByID(ctx, "w1"); err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}
	list, err := workouts.ListByProgram(ctx, "prog")
	if err != nil {
		t.Fatal(err)
	}
	assertPositions(t, list, map[string]int{"w0": 0, "w2": 1})
}

func TestWorkoutIDReconciliationCascadesToExercises(t *testing.T) {
	db := testDB(t)
	programs := NewProgramRepository(db)
	workouts := NewWorkoutRepository(db)
	exercises := NewExerciseRepository(db)
	ctx := context.Background()

	if err := programs.Upsert(ctx, testProgram("prog", "p1")); err != nil {
		t.Fatal(err)
	}
	if err := workouts.Upsert(ctx, testWorkout("wu1", "prog", 0)); err != nil {
		t.Fatal(err)
	}
	now := time.Now().UTC().Truncate(time.Second)
	ex := &domain.WorkoutExercise{
		ID: "e1", WorkoutID: "wu1", ProfileID: "p1",
		ExerciseName: "Squat", Sets: 5, Reps: 5, Position: 0,
		SyncStatus: domain.SyncStatusPendingCreate, LocalCreatedAt: now, LocalUpdatedAt: now,
	}
	if err := exercises.Upsert(ctx, ex); err != nil {
		t.Fatal(err)
	}

	if err := workouts.UpdateIDAndStatus(ctx, "wu1", "srv-w1", domain.SyncStatusSynced, &now, &now); err != nil {
		t.Fatalf("UpdateIDAndStatus: %v", err)
	}
	got, err := exercises.GetByID(ctx, "e1")
	if err != nil {
		t.Fatal(err)
	}
	if got.WorkoutID != "srv-w1" {
		t.Errorf("exercise.WorkoutID = %s, want srv-w1", got.WorkoutID)
	}
}

func TestWatchEmitsOnChange(t *testing.T) {
	db := testDB(t)
	repo := NewProgramRepository(db)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch := repo.Watch(ctx, "p1")

	// Initial emission is the empty list.
	select {
	case first := <-ch:
		if len(first) != 0 {
			t.Fatalf("initial emission has %d rows, want 0", len(first))
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for initial emission")
	}

	if err := repo.Upsert(ctx, testProgram("u1", "p1")); err != nil {
		t.Fatal(err)
	}

	select {
	case next := <-ch:
		if len(next) != 1 || next[0].ID != "u1" {
			t.Fatalf("post-upsert emission = %+v, want [u1]", next)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for change emission")
	}
}

func TestMetaRoundTrip(t *testing.T) {
	db := testDB(t)
	meta := NewMetaRepository(db)
	ctx := context.Background()

	if _, err := meta.Get(ctx, repository.MetaKeyLastSyncAt); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Get missing key: err = %v, want ErrNotFound", err)
	}
	if err := meta.Set(ctx, repository.MetaKeyLastSyncAt, "2026-01-02T15:04:05Z"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := meta.Set(ctx, repository.MetaKeyLastSyncAt, "2026-01-03T00:00:00Z"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	got, err := meta.Get(ctx, repository.MetaKeyLastSyncAt)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "2026-01-03T00:00:00Z" {
		t.Errorf("Get = %q", got)
	}
}

func TestMediaQueue(t *testing.T) {
	db := testDB(t)
	media := NewMediaRepository(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	m := &domain.MediaUpload{
		ID: "m1", ProfileID: "p1", WorkoutID: "w1",
		FilePath: "/tmp/squat.mp4", ContentType: "video/mp4",
		Status: domain.MediaStatusPending, LocalCreatedAt: now,
	}
	if err := media.Upsert(ctx, m); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	pending, err := media.ListPending(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}

	if err := media.MarkFailed(ctx, "m1"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	got, err := media.GetByID(ctx, "m1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Attempts != 1 || got.Status != domain.MediaStatusPending {
		t.Errorf("after MarkFailed: attempts=%d status=%s", got.Attempts, got.Status)
	}

	if err := media.MarkUploaded(ctx, "m1", "uploads/p1/m1.mp4", now); err != nil {
		t.Fatalf("MarkUploaded: %v", err)
	}
	pending, err = media.ListPending(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after upload = %d, want 0", len(pending))
	}
}
