package domain

import "time"

// User is an account on the backend. The client only ever sees its own user;
// the devserver keeps the full record including the password hash.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"` // Should be unique
	PasswordHash string    `json:"-"`     // Never expose this via JSON
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
