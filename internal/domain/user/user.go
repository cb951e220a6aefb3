package user

import "time"

// User carries the single refresh-token hash slot: at most one refresh token
// is valid per user, rotation overwrites the slot, logout clears it to nil.
type User struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"` // never expose hash in JSON
	RefreshTokenHash *string   `json:"-"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
