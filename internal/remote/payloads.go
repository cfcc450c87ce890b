package remote

import "time"

// Wire types for the backend REST API. Server-side records always carry
// server-assigned IDs and server-clock timestamps.

// Program is the server representation of a training program.
type Program struct {
	ID          string    `json:"id"`
	ProfileID   string    `json:"profileId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ProgramPayload is the create/update request body for programs.
type ProgramPayload struct {
	ProfileID   string `json:"profileId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Workout is the server representation of a workout.
type Workout struct {
	ID        string    `json:"id"`
	ProgramID string    `json:"programId"`
	ProfileID string    `json:"profileId"`
	Name      string    `json:"name"`
	Notes     string    `json:"notes,omitempty"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// WorkoutPayload is the create/update request body for workouts.
type WorkoutPayload struct {
	ProfileID string `json:"profileId"`
	Name      string `json:"name"`
	Notes     string `json:"notes,omitempty"`
	Position  int    `json:"position"`
}

// Exercise is the server representation of a workout exercise.
type Exercise struct {
	ID           string    `json:"id"`
	WorkoutID    string    `json:"workoutId"`
	ProfileID    string    `json:"profileId"`
	ExerciseName string    `json:"exerciseName"`
	Sets         int       `json:"sets"`
	Reps         int       `json:"reps"`
	WeightKg     float64   `json:"weightKg,omitempty"`
	RestSeconds  int       `json:"restSeconds,omitempty"`
	Position     int       `json:"position"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ExercisePayload is the create/update request body for workout exercises.
type ExercisePayload struct {
	ProfileID    string  `json:"profileId"`
	ExerciseName string  `json:"exerciseName"`
	Sets         int     `json:"sets"`
	Reps         int     `json:"reps"`
	WeightKg     float64 `json:"weightKg,omitempty"`
	RestSeconds  int     `json:"restSeconds,omitempty"`
	Position     int     `json:"position"`
}

// PresignRequest asks the backend to sign an object-storage upload.
type PresignRequest struct {
	WorkoutID   string `json:"workoutId"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
}

// PresignResponse carries the presigned PUT URL and the object key the
// client should record once the upload succeeds.
type PresignResponse struct {
	URL       string `json:"url"`
	ObjectKey string `json:"objectKey"`
}

// Credentials is the login/register request body.
type Credentials struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer token issued on login.
type LoginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}
