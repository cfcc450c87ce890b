package domain

import "time"

// TrainingProgram is the top-level container a profile organizes workouts in,
// e.g. "Phase 1: Hypertrophy". The ID is a locally generated UUID until the
// first successful sync, after which it is rewritten to the server-assigned ID.
type TrainingProgram struct {
	ID          string     `json:"id"`
	ProfileID   string     `json:"profileId"` // Owner of the program
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	SyncStatus  SyncStatus `json:"syncStatus"`

	// Client-clock timestamps, always set.
	LocalCreatedAt time.Time `json:"localCreatedAt"`
	LocalUpdatedAt time.Time `json:"localUpdatedAt"`

	// Server-clock timestamps, nil until the first successful sync.
	ServerCreatedAt *time.Time `json:"serverCreatedAt,omitempty"`
	ServerUpdatedAt *time.Time `json:"serverUpdatedAt,omitempty"`
}
