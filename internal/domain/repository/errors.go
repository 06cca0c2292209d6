package repository

import "errors"

var (
	// ErrVideoNotFound is returned when a video cannot be found.
	ErrVideoNotFound = errors.New("video not found")

	// ErrUserNotFound is returned when a user cannot be found.
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateUser is returned when a username or email is already taken.
	ErrDuplicateUser = errors.New("user already exists")

	// ErrVersionConflict is returned when an update observed a stale version.
	// The caller's transaction must be rolled back.
	ErrVersionConflict = errors.New("video was modified concurrently")

	// ErrDuplicateStoragePath is returned when a storage path or processed
	// storage path would collide with another row's unique value.
	ErrDuplicateStoragePath = errors.New("storage path already in use")
)
