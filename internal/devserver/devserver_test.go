package devserver

import (
	"context"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"gymsync/internal/remote"
	"gymsync/internal/storage"
	"gymsync/internal/syncerr"
)

type staticToken string

func (t staticToken) Token(context.Context) (string, error) { return string(t), nil }

// startServer boots a devserver with local object storage and returns an
// authenticated API client for a fresh account.
func startServer(t *testing.T) (*remote.Client, *Store) {
	t.Helper()
	store := NewStore()
	local := NewLocalStorage(store)
	srv := New(store, local, "test-secret", log.New(io.Discard, "", 0))
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	local.SetBaseURL(ts.URL)

	anon := remote.NewClient(ts.URL, 5*time.Second, nil)
	ctx := context.Background()
	if err := anon.Register(ctx, "Test Lifter", "lifter@example.com", "hunter2secret"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	login, err := anon.Login(ctx, "lifter@example.com", "hunter2secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.Token == "" || login.UserID == "" {
		t.Fatalf("login response incomplete: %+v", login)
	}
	return remote.NewClient(ts.URL, 5*time.Second, staticToken(login.Token)), store
}

func TestAuthRequired(t *testing.T) {
	store := NewStore()
	srv := New(store, NewLocalStorage(store), "test-secret", log.New(io.Discard, "", 0))
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	anon := remote.NewClient(ts.URL, 5*time.Second, nil)
	_, err := anon.ListPrograms(context.Background(), "whoever")
	if !syncerr.IsKind(err, syncerr.KindRemoteRejected) || syncerr.StatusCode(err) != 401 {
		t.Errorf("unauthenticated list: err = %v, want 401 rejection", err)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	store := NewStore()
	srv := New(store, NewLocalStorage(store), "test-secret", log.New(io.Discard, "", 0))
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	anon := remote.NewClient(ts.URL, 5*time.Second, nil)
	ctx := context.Background()
	if err := anon.Register(ctx, "A", "a@example.com", "correcthorse"); err != nil {
		t.Fatal(err)
	}
	if _, err := anon.Login(ctx, "a@example.com", "wrong-password"); syncerr.StatusCode(err) != 401 {
		t.Errorf("bad password: err = %v, want 401", err)
	}
}

func TestProgramLifecycle(t *testing.T) {
	client, _ := startServer(t)
	ctx := context.Background()

	created, err := client.CreateProgram(ctx, remote.ProgramPayload{Name: "PPL", Description: "push pull legs"})
	if err != nil {
		t.Fatalf("CreateProgram: %v", err)
	}
	if !strings.HasPrefix(created.ID, "srv-") {
		t.Errorf("server ID = %q, want srv- prefix", created.ID)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("server timestamps missing")
	}
	if created.ProfileID == "" {
		t.Error("ownership not stamped from token")
	}

	updated, err := client.UpdateProgram(ctx, created.ID, remote.ProgramPayload{Name: "PPL v2"})
	if err != nil {
		t.Fatalf("UpdateProgram: %v", err)
	}
	if updated.Name != "PPL v2" {
		t.Errorf("name = %q", updated.Name)
	}

	list, err := client.ListPrograms(ctx, created.ProfileID)
	if err != nil {
		t.Fatalf("ListPrograms: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("programs = %d, want 1", len(list))
	}

	if err := client.DeleteProgram(ctx, created.ID); err != nil {
		t.Fatalf("DeleteProgram: %v", err)
	}
	// Idempotent: deleting again hits a 404 the client maps to success.
	if err := client.DeleteProgram(ctx, created.ID); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestWorkoutPositionShifts(t *testing.T) {
	client, _ := startServer(t)
	ctx := context.Background()

	program, err := client.CreateProgram(ctx, remote.ProgramPayload{Name: "Block"})
	if err != nil {
		t.Fatal(err)
	}

	var ids []string
	for i, name := range []string{"Day 1", "Day 2", "Day 3"} {
		w, err := client.CreateWorkout(ctx, program.ID, remote.WorkoutPayload{Name: name, Position: i})
		if err != nil {
			t.Fatalf("CreateWorkout %s: %v", name, err)
		}
		ids = append(ids, w.ID)
	}

	// Move Day 3 to the front; the server shifts the other two down.
	moved, err := client.UpdateWorkout(ctx, ids[2], remote.WorkoutPayload{Name: "Day 3", Position: 0})
	if err != nil {
		t.Fatalf("UpdateWorkout: %v", err)
	}
	if moved.Position != 0 {
		t.Errorf("moved position = %d, want 0", moved.Position)
	}

	list, err := client.ListWorkouts(ctx, program.ID)
	if err != nil {
		t.Fatal(err)
	}
	wantOrder := []string{ids[2], ids[0], ids[1]}
	for i, w := range list {
		if w.ID != wantOrder[i] || w.Position != i {
			t.Errorf("index %d: got %s at position %d, want %s at %d", i, w.ID, w.Position, wantOrder[i], i)
		}
	}

	// Deleting the middle workout closes the gap.
	if err := client.DeleteWorkout(ctx, ids[0]); err != nil {
		t.Fatal(err)
	}
	list, err = client.ListWorkouts(ctx, program.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Position != 0 || list[1].Position != 1 {
		t.Errorf("positions after delete: %+v", list)
	}
}

func TestExerciseLifecycleAndCascade(t *testing.T) {
	client, _ := startServer(t)
	ctx := context.Background()

	program, _ := client.CreateProgram(ctx, remote.ProgramPayload{Name: "Block"})
	workout, err := client.CreateWorkout(ctx, program.ID, remote.WorkoutPayload{Name: "Day 1"})
	if err != nil {
		t.Fatal(err)
	}

	squat, err := client.CreateExercise(ctx, workout.ID, remote.ExercisePayload{
		ExerciseName: "Squat", Sets: 5, Reps: 5, WeightKg: 100,
	})
	if err != nil {
		t.Fatalf("CreateExercise: %v", err)
	}
	if squat.Position != 0 {
		t.Errorf("first exercise position = %d", squat.Position)
	}

	updated, err := client.UpdateExercise(ctx, squat.ID, remote.ExercisePayload{
		ExerciseName: "Squat", Sets: 3, Reps: 8, WeightKg: 90,
	})
	if err != nil {
		t.Fatalf("UpdateExercise: %v", err)
	}
	if updated.Sets != 3 || updated.Reps != 8 {
		t.Errorf("prescription not updated: %+v", updated)
	}

	// Deleting the program takes the workout and exercise with it.
	if err := client.DeleteProgram(ctx, program.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := client.ListExercises(ctx, workout.ID); syncerr.StatusCode(err) != 404 {
		t.Errorf("exercises survive program delete: err = %v", err)
	}
}

func TestUnknownParentRejected(t *testing.T) {
	client, _ := startServer(t)
	_, err := client.CreateWorkout(context.Background(), "srv-nope", remote.WorkoutPayload{Name: "Day 1"})
	if syncerr.StatusCode(err) != 404 {
		t.Errorf("create under missing program: err = %v, want 404", err)
	}
}

func TestPresignAndUpload(t *testing.T) {
	client, store := startServer(t)
	ctx := context.Background()

	presigned, err := client.PresignUpload(ctx, remote.PresignRequest{
		WorkoutID: "w-1", FileName: "squat.mp4", ContentType: "video/mp4",
	})
	if err != nil {
		t.Fatalf("PresignUpload: %v", err)
	}
	if presigned.ObjectKey == "" || presigned.URL == "" {
		t.Fatalf("presign response incomplete: %+v", presigned)
	}

	body := strings.NewReader("fake video bytes")
	if err := client.UploadFile(ctx, presigned.URL, "video/mp4", body, int64(body.Len())); err != nil {
		t.Fatalf("UploadFile: %v", err)
	}

	data, ok := store.GetObject(presigned.ObjectKey)
	if !ok {
		t.Fatal("uploaded object missing from storage")
	}
	if string(data) != "fake video bytes" {
		t.Errorf("stored bytes = %q", data)
	}
}

// recordingStorage captures the parameters the presign handler passes to the
// storage backend.
type recordingStorage struct {
	mu      sync.Mutex
	expires time.Duration
}

func (r *recordingStorage) GeneratePresignedUploadURL(_ context.Context, objectKey, _ string, expires time.Duration) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expires = expires
	return "http://storage.test/" + objectKey, nil
}

func (r *recordingStorage) GeneratePresignedDownloadURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	return "http://storage.test/" + objectKey, nil
}

func (r *recordingStorage) DeleteObject(context.Context, string) error { return nil }

func TestPresignSignsWithRealExpiry(t *testing.T) {
	store := NewStore()
	files := &recordingStorage{}
	srv := New(store, files, "test-secret", log.New(io.Discard, "", 0))
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	anon := remote.NewClient(ts.URL, 5*time.Second, nil)
	ctx := context.Background()
	if err := anon.Register(ctx, "B", "b@example.com", "correcthorse"); err != nil {
		t.Fatal(err)
	}
	login, err := anon.Login(ctx, "b@example.com", "correcthorse")
	if err != nil {
		t.Fatal(err)
	}
	client := remote.NewClient(ts.URL, 5*time.Second, staticToken(login.Token))

	if _, err := client.PresignUpload(ctx, remote.PresignRequest{
		WorkoutID: "w-1", FileName: "a.mp4", ContentType: "video/mp4",
	}); err != nil {
		t.Fatalf("PresignUpload: %v", err)
	}
	// A zero expiry would come back from S3 already expired.
	if files.expires != storage.DefaultPresignedURLExpiry {
		t.Errorf("presign expiry = %v, want %v", files.expires, storage.DefaultPresignedURLExpiry)
	}
}
