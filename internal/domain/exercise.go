package domain

import "time"

// WorkoutExercise is one exercise entry inside a Workout: the exercise name
// plus the prescription (sets, reps, weight, rest). Ordered within the workout
// by a dense zero-based Position, same discipline as Workout.Position.
type WorkoutExercise struct {
	ID           string  `json:"id"`
	WorkoutID    string  `json:"workoutId"`
	ProfileID    string  `json:"profileId"`
	ExerciseName string  `json:"exerciseName"`
	Sets         int     `json:"sets"`
	Reps         int     `json:"reps"`
	WeightKg     float64 `json:"weightKg,omitempty"`
	RestSeconds  int     `json:"restSeconds,omitempty"`
	Position     int     `json:"position"`

	SyncStatus SyncStatus `json:"syncStatus"`

	LocalCreatedAt  time.Time  `json:"localCreatedAt"`
	LocalUpdatedAt  time.Time  `json:"localUpdatedAt"`
	ServerCreatedAt *time.Time `json:"serverCreatedAt,omitempty"`
	ServerUpdatedAt *time.Time `json:"serverUpdatedAt,omitempty"`
}
