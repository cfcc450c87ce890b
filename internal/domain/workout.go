package domain

import "time"

// Workout is a single session within a TrainingProgram, e.g. "Day 1: Upper Body".
type Workout struct {
	ID        string `json:"id"`
	ProgramID string `json:"programId"` // Link back to the owning program
	ProfileID string `json:"profileId"` // Denormalized owner, matches the program's
	Name      string `json:"name"`
	Notes     string `json:"notes,omitempty"`

	// Position is the dense zero-based order of the workout within its
	// program. Reorders shift sibling positions transactionally so the set
	// stays a permutation of 0..N-1.
	Position int `json:"position"`

	SyncStatus SyncStatus `json:"syncStatus"`

	LocalCreatedAt  time.Time  `json:"localCreatedAt"`
	LocalUpdatedAt  time.Time  `json:"localUpdatedAt"`
	ServerCreatedAt *time.Time `json:"serverCreatedAt,omitempty"`
	ServerUpdatedAt *time.Time `json:"serverUpdatedAt,omitempty"`
}
