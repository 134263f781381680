package user

import "time"

// User is an employee or administrator account. The admin flag is the only
// authorization distinction the system knows about.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
}
