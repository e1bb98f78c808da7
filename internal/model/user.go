package model

import "time"

// User mirrors the users table. Handlers never serialize it directly; they
// build a response without PasswordHash.
type User struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	PasswordHash    string     `json:"password_hash"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	Username        *string    `json:"username"`
	DateOfBirth     *string    `json:"date_of_birth"`
	Gender          *string    `json:"gender"`
	Height          *float64   `json:"height"`
	ProfileImageURL *string    `json:"profile_image_url"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at"`
}

// RefreshToken models an entry in the refresh_tokens table. Only the
// SHA-256 hash of the raw token is stored.
type RefreshToken struct {
	TokenHash string     `json:"token_hash"`
	UserID    string     `json:"user_id"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at"`
	CreatedAt time.Time  `json:"created_at"`
}
