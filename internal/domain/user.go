package domain

import (
	"net/mail"
	"strings"
	"time"
)

// MinPasswordLength is the shortest password Register accepts.
const MinPasswordLength = 8

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NewUser creates a user; the caller sets PasswordHash.
func NewUser(username, email, fullName string, now time.Time) *User {
	return &User{
		Username:  strings.TrimSpace(username),
		Email:     strings.TrimSpace(email),
		FullName:  strings.TrimSpace(fullName),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks identity fields. Password rules live with hashing.
func (u *User) Validate() error {
	v := NewValidationError()
	if u.Username == "" {
		v.Add("username", "username is required")
	} else if strings.ContainsAny(u.Username, " \t\n") {
		v.Add("username", "username cannot contain whitespace")
	}
	if u.Email != "" {
		if _, err := mail.ParseAddress(u.Email); err != nil {
			v.Add("email", "email is not a valid address")
		}
	}
	return v.Err()
}
