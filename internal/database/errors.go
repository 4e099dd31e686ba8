package database

import "errors"

var (
	// ErrShortCodeExists is returned when an attempt is made to create
	// a new link with a short code that already exists.
	ErrShortCodeExists = errors.New("short code exists")
	// ErrLinkNotFound is returned when no link row matches the query.
	ErrLinkNotFound = errors.New("link not found")
	// ErrUserExists is returned when the username is already registered.
	ErrUserExists = errors.New("user exists")
	// ErrUserNotFound is returned when no user row matches the query.
	ErrUserNotFound = errors.New("user not found")
)
