package domain

import (
	"fmt"
	"time"
)

// Session represents a login session. Only the SHA-256 hash of the bearer
// token is stored; the plaintext token exists client-side only.
type Session struct {
	ID        string
	UserID    string
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ValidateSession validates a Session instance
func ValidateSession(s *Session) error {
	if s == nil {
		return fmt.Errorf("session cannot be nil")
	}

	if s.ID == "" {
		return fmt.Errorf("session ID is required")
	}

	if s.UserID == "" {
		return fmt.Errorf("session UserID is required")
	}

	if s.TokenHash == "" {
		return fmt.Errorf("session TokenHash is required")
	}

	if !s.ExpiresAt.After(s.CreatedAt) {
		return fmt.Errorf("session ExpiresAt must be after CreatedAt")
	}

	return nil
}

// IsExpired reports whether the session has passed its expiry.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
