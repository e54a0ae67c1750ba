package domain

import (
	"fmt"
	"time"
)

// Role distinguishes the two account kinds. Role is always stored explicitly;
// it is never inferred from the shape of a record.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// User represents an account. Passwords are stored only as bcrypt hashes.
type User struct {
	ID           string
	Name         string
	Username     string
	PasswordHash string
	Role         Role
	ClassName    string // Only set for students
	CreatedAt    time.Time
}

// ValidateUser validates a User instance
func ValidateUser(u *User) error {
	if u == nil {
		return fmt.Errorf("user cannot be nil")
	}

	if u.ID == "" {
		return fmt.Errorf("user ID is required")
	}

	if u.Username == "" {
		return fmt.Errorf("user Username is required")
	}

	if u.PasswordHash == "" {
		return fmt.Errorf("user PasswordHash is required")
	}

	if !IsValidRole(u.Role) {
		return fmt.Errorf("user Role is invalid: %s", u.Role)
	}

	if u.Role == RoleTeacher && u.ClassName != "" {
		return fmt.Errorf("teacher accounts cannot have a ClassName")
	}

	return nil
}

// IsValidRole checks if a Role is valid
func IsValidRole(r Role) bool {
	switch r {
	case RoleStudent, RoleTeacher:
		return true
	}
	return false
}
