package store

import "errors"

var (
	// ErrUserNotFound is returned when no user row exists for the given email.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists is returned by CreateUser when a row with the same
	// email already exists, including the loser of a concurrent first-login race.
	ErrUserAlreadyExists = errors.New("user already exists")
)
