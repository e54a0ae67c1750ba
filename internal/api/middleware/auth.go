package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/eduquery-ai/eduquery/internal/api"
	"github.com/eduquery-ai/eduquery/internal/domain"
)

type contextKey string

const UserKey contextKey = "user"

type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*domain.User, error)
}

// SessionAuth resolves the Bearer session token to a user and stores it on
// the request context.
func SessionAuth(validator SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")

			user, err := validator.ValidateSession(r.Context(), token)
			if err != nil {
				api.Error(w, http.StatusUnauthorized, "invalid session token")
				return
			}

			ctx := context.WithValue(r.Context(), UserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireTeacher rejects requests from accounts without the teacher role.
// It must run after SessionAuth.
func RequireTeacher(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetUser(r.Context())
		if user == nil {
			api.Error(w, http.StatusUnauthorized, "missing session")
			return
		}
		if user.Role != domain.RoleTeacher {
			api.Error(w, http.StatusForbidden, "teacher role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func GetUser(ctx context.Context) *domain.User {
	user, _ := ctx.Value(UserKey).(*domain.User)
	return user
}
