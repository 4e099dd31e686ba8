package models

import "time"

// User represents a registered account that can own links.
type User struct {
	ID             int64
	Username       string
	HashedPassword string
	CreatedAt      time.Time
}
