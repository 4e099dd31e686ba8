package service

import "errors"

var (
	// ErrLinkNotFound is returned when the link is absent, inactive or expired.
	ErrLinkNotFound = errors.New("link not found")
	// ErrNotFoundOrUnauthorized is returned by mutations when the link is
	// absent or owned by someone else. The two cases are not distinguished.
	ErrNotFoundOrUnauthorized = errors.New("link not found or unauthorized")
	// ErrShortCodeTaken is returned when a custom short code is already in use.
	ErrShortCodeTaken = errors.New("short code already taken")
	// ErrMaxRetriesExceeded is returned when the maximum number of retries for generating a short code is exceeded.
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded for generating short code")

	// ErrUsernameTaken is returned on registration of an existing username.
	ErrUsernameTaken = errors.New("username already registered")
	// ErrPasswordTooLong is returned when a password exceeds the bcrypt input limit.
	ErrPasswordTooLong = errors.New("password exceeds 72 bytes")
	// ErrInvalidCredentials is returned when the username or password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned when an access token is malformed, forged or expired.
	ErrInvalidToken = errors.New("invalid token")
)
