package model

import (
	"errors"
	"regexp"
	"strings"
)

// Role is the authorization role of a user account.
type Role string

const (
	RoleUser Role = "USER"
)

var (
	ErrInvalidUsername = errors.New("username must be 3-20 characters of letters, digits or underscore")
	ErrInvalidEmail    = errors.New("email address is invalid")
	ErrEmptyPassword   = errors.New("password cannot be empty")
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)
	// Intentionally loose: real validation happens when the verification
	// mail bounces.
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// User is an account that owns videos.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	Verified     bool
}

// NewUser creates an unverified user account. The password must already be
// hashed by the auth layer.
func NewUser(username, email, passwordHash string) (*User, error) {
	if !usernamePattern.MatchString(username) {
		return nil, ErrInvalidUsername
	}
	if !emailPattern.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	if passwordHash == "" {
		return nil, ErrEmptyPassword
	}

	return &User{
		Username:     username,
		Email:        strings.ToLower(email),
		PasswordHash: passwordHash,
		Role:         RoleUser,
		Verified:     false,
	}, nil
}

// ValidateUsername reports whether a username satisfies the account rules.
func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}
