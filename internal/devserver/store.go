package devserver

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"gymsync/internal/domain"
	"gymsync/internal/remote"
)

// StoreError signals a store-level failure to the handlers.
type StoreError string

func (e StoreError) Error() string { return string(e) }

var (
	ErrRecordNotFound = StoreError("record not found")
	ErrEmailTaken     = StoreError("email already registered")
)

// Store is the devserver's in-memory database. One mutex guards everything;
// this is a development fixture, not a production backend.
type Store struct {
	mu        sync.Mutex
	users     map[string]*domain.User // keyed by ID
	programs  map[string]remote.Program
	workouts  map[string]remote.Workout
	exercises map[string]remote.Exercise
	objects   map[string][]byte // local object storage, keyed by object key
	now       func() time.Time
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		users:     make(map[string]*domain.User),
		programs:  make(map[string]remote.Program),
		workouts:  make(map[string]remote.Workout),
		exercises: make(map[string]remote.Exercise),
		objects:   make(map[string][]byte),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// newServerID mints a server-side identifier. The prefix makes server IDs
// recognizable next to client UUIDs when debugging sync traffic.
func newServerID() string {
	return "srv-" + uuid.NewString()
}

// --- Users ---

func (s *Store) CreateUser(name, email, passwordHash string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return nil, ErrEmailTaken
		}
	}
	now := s.now()
	u := &domain.User{
		ID: newServerID(), Name: name, Email: email,
		PasswordHash: passwordHash, CreatedAt: now, UpdatedAt: now,
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) UserByEmail(email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, ErrRecordNotFound
}

// --- Programs ---

func (s *Store) CreateProgram(p remote.ProgramPayload) remote.Program {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	created := remote.Program{
		ID: newServerID(), ProfileID: p.ProfileID, Name: p.Name,
		Description: p.Description, CreatedAt: now, UpdatedAt: now,
	}
	s.programs[created.ID] = created
	return created
}

func (s *Store) UpdateProgram(id string, p remote.ProgramPayload) (remote.Program, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.programs[id]
	if !ok {
		return remote.Program{}, ErrRecordNotFound
	}
	existing.Name, existing.Description = p.Name, p.Description
	existing.UpdatedAt = s.now()
	s.programs[id] = existing
	return existing, nil
}

// DeleteProgram removes a program and everything under it. Deleting an
// unknown ID is an error here; the handler maps it to 404, and the client
// treats that as success.
func (s *Store) DeleteProgram(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.programs[id]; !ok {
		return ErrRecordNotFound
	}
	delete(s.programs, id)
	for wid, w := range s.workouts {
		if w.ProgramID != id {
			continue
		}
		delete(s.workouts, wid)
		for eid, e := range s.exercises {
			if e.WorkoutID == wid {
				delete(s.exercises, eid)
			}
		}
	}
	return nil
}

func (s *Store) ListPrograms(profileID string) []remote.Program {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]remote.Program, 0)
	for _, p := range s.programs {
		if p.ProfileID == profileID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *Store) programExists(id string) bool {
	_, ok := s.programs[id]
	return ok
}

// --- Workouts ---

// workoutsOf returns the program's workouts sorted by position. Caller holds
// the lock.
func (s *Store) workoutsOf(programID string) []remote.Workout {
	var out []remote.Workout
	for _, w := range s.workouts {
		if w.ProgramID == programID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (s *Store) CreateWorkout(programID string, p remote.WorkoutPayload) (remote.Workout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.programExists(programID) {
		return remote.Workout{}, ErrRecordNotFound
	}

	siblings := s.workoutsOf(programID)
	pos := p.Position
	if pos < 0 || pos > len(siblings) {
		pos = len(siblings) // out-of-range creates append
	}
	// Make room: siblings at or after the insertion point slide down.
	for _, w := range siblings {
		if w.Position >= pos {
			w.Position++
			s.workouts[w.ID] = w
		}
	}

	now := s.now()
	created := remote.Workout{
		ID: newServerID(), ProgramID: programID, ProfileID: p.ProfileID,
		Name: p.Name, Notes: p.Notes, Position: pos,
		CreatedAt: now, UpdatedAt: now,
	}
	s.workouts[created.ID] = created
	return created, nil
}

func (s *Store) UpdateWorkout(id string, p remote.WorkoutPayload) (remote.Workout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.workouts[id]
	if !ok {
		return remote.Workout{}, ErrRecordNotFound
	}

	siblings := s.workoutsOf(existing.ProgramID)
	newPos := p.Position
	if newPos < 0 {
		newPos = 0
	}
	if newPos > len(siblings)-1 {
		newPos = len(siblings) - 1
	}
	s.shiftWorkouts(siblings, existing.Position, newPos, id)

	existing.Name, existing.Notes = p.Name, p.Notes
	existing.Position = newPos
	existing.UpdatedAt = s.now()
	s.workouts[id] = existing
	return existing, nil
}

// shiftWorkouts mirrors the client's reorder: moving down decrements the
// rows in (old, new], moving up increments the rows in [new, old).
func (s *Store) shiftWorkouts(siblings []remote.Workout, oldPos, newPos int, movedID string) {
	for _, w := range siblings {
		if w.ID == movedID {
			continue
		}
		switch {
		case newPos > oldPos && w.Position > oldPos && w.Position <= newPos:
			w.Position--
			s.workouts[w.ID] = w
		case newPos < oldPos && w.Position >= newPos && w.Position < oldPos:
			w.Position++
			s.workouts[w.ID] = w
		}
	}
}

func (s *Store) DeleteWorkout(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.workouts[id]
	if !ok {
		return ErrRecordNotFound
	}
	delete(s.workouts, id)
	for eid, e := range s.exercises {
		if e.WorkoutID == id {
			delete(s.exercises, eid)
		}
	}
	// Close the position gap.
	for _, w := range s.workoutsOf(existing.ProgramID) {
		if w.Position > existing.Position {
			w.Position--
			s.workouts[w.ID] = w
		}
	}
	return nil
}

func (s *Store) ListWorkouts(programID string) ([]remote.Workout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.programExists(programID) {
		return nil, ErrRecordNotFound
	}
	return append([]remote.Workout{}, s.workoutsOf(programID)...), nil
}

// --- Exercises ---

func (s *Store) exercisesOf(workoutID string) []remote.Exercise {
	var out []remote.Exercise
	for _, e := range s.exercises {
		if e.WorkoutID == workoutID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (s *Store) CreateExercise(workoutID string, p remote.ExercisePayload) (remote.Exercise, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workouts[workoutID]; !ok {
		return remote.Exercise{}, ErrRecordNotFound
	}

	siblings := s.exercisesOf(workoutID)
	pos := p.Position
	if pos < 0 || pos > len(siblings) {
		pos = len(siblings)
	}
	for _, e := range siblings {
		if e.Position >= pos {
			e.Position++
			s.exercises[e.ID] = e
		}
	}

	now := s.now()
	created := remote.Exercise{
		ID: newServerID(), WorkoutID: workoutID, ProfileID: p.ProfileID,
		ExerciseName: p.ExerciseName, Sets: p.Sets, Reps: p.Reps,
		WeightKg: p.WeightKg, RestSeconds: p.RestSeconds, Position: pos,
		CreatedAt: now, UpdatedAt: now,
	}
	s.exercises[created.ID] = created
	return created, nil
}

func (s *Store) UpdateExercise(id string, p remote.ExercisePayload) (remote.Exercise, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.exercises[id]
	if !ok {
		return remote.Exercise{}, ErrRecordNotFound
	}

	siblings := s.exercisesOf(existing.WorkoutID)
	newPos := p.Position
	if newPos < 0 {
		newPos = 0
	}
	if newPos > len(siblings)-1 {
		newPos = len(siblings) - 1
	}
	for _, e := range siblings {
		if e.ID == id {
			continue
		}
		switch {
		case newPos > existing.Position && e.Position > existing.Position && e.Position <= newPos:
			e.Position--
			s.exercises[e.ID] = e
		case newPos < existing.Position && e.Position >= newPos && e.Position < existing.Position:
			e.Position++
			s.exercises[e.ID] = e
		}
	}

	existing.ExerciseName, existing.Sets, existing.Reps = p.ExerciseName, p.Sets, p.Reps
	existing.WeightKg, existing.RestSeconds = p.WeightKg, p.RestSeconds
	existing.Position = newPos
	existing.UpdatedAt = s.now()
	s.exercises[id] = existing
	return existing, nil
}

func (s *Store) DeleteExercise(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.exercises[id]
	if !ok {
		return ErrRecordNotFound
	}
	delete(s.exercises, id)
	for _, e := range s.exercisesOf(existing.WorkoutID) {
		if e.Position > existing.Position {
			e.Position--
			s.exercises[e.ID] = e
		}
	}
	return nil
}

func (s *Store) ListExercises(workoutID string) ([]remote.Exercise, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workouts[workoutID]; !ok {
		return nil, ErrRecordNotFound
	}
	return append([]remote.Exercise{}, s.exercisesOf(workoutID)...), nil
}

// --- Objects ---

func (s *Store) PutObject(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
}

func (s *Store) GetObject(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	return data, ok
}

func (s *Store) DeleteObject(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
}
