package models

import "time"

// User represents an account stored in the users table. Email is unique
// case-insensitively; usernames are not guaranteed unique. Active stays
// false until the email verification collaborator flips it. MFASecret is
// present exactly when MFAEnabled is true.
type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Bio          string    `db:"bio" json:"bio,omitempty"`
	Picture      string    `db:"picture" json:"picture,omitempty"`
	Active       bool      `db:"active" json:"active"`
	MFAEnabled   bool      `db:"mfa_enabled" json:"mfa_enabled"`
	MFASecret    *string   `db:"mfa_secret" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ProfileUpdate captures the partial fields a user may change on their own
// profile. Nil pointers leave the stored value untouched.
type ProfileUpdate struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Bio      *string `json:"bio,omitempty"`
	Picture  *string `json:"picture,omitempty"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
