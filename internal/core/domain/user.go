package domain

import "time"

// User is the identity orders belong to. IsStaff grants admin capability.
type User struct {
	ID        int64
	Username  string
	IsStaff   bool
	CreatedAt time.Time
}
