package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/eduquery-ai/eduquery/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

const (
	sessionTokenPrefix = "edq_"
	sessionTTL         = 7 * 24 * time.Hour
)

type UserRepositoryInterface interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

type SessionRepositoryInterface interface {
	Create(ctx context.Context, s *domain.Session) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type RegisterInput struct {
	Name      string
	Username  string
	Password  string
	Role      domain.Role
	ClassName string
}

// LoginOutput pairs the authenticated user with the plaintext session
// token. The token is never stored; only its SHA-256 hash is.
type LoginOutput struct {
	User  *domain.User
	Token string
}

// AuthService handles registration, login, and session validation.
type AuthService struct {
	userRepo    UserRepositoryInterface
	sessionRepo SessionRepositoryInterface
	uuidGen     UUIDGenerator
}

func NewAuthService(userRepo UserRepositoryInterface, sessionRepo SessionRepositoryInterface) *AuthService {
	return NewAuthServiceWithUUIDGen(userRepo, sessionRepo, &DefaultUUIDGenerator{})
}

func NewAuthServiceWithUUIDGen(userRepo UserRepositoryInterface, sessionRepo SessionRepositoryInterface, uuidGen UUIDGenerator) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		uuidGen:     uuidGen,
	}
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	if input.Username == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "username is required")
	}
	if len(input.Password) < 8 {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "password must be at least 8 characters")
	}
	if !domain.IsValidRole(input.Role) {
		return nil, domain.ErrInvalidRole
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to hash password", err)
	}

	user := &domain.User{
		ID:           s.uuidGen.NewString(),
		Name:         input.Name,
		Username:     input.Username,
		PasswordHash: string(hash),
		Role:         input.Role,
		ClassName:    input.ClassName,
		CreatedAt:    time.Now().UTC(),
	}
	if err := domain.ValidateUser(user); err != nil {
		return nil, err
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginOutput, error) {
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	token, err := generateSessionToken()
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to generate session token", err)
	}

	now := time.Now().UTC()
	session := &domain.Session{
		ID:        s.uuidGen.NewString(),
		UserID:    user.ID,
		TokenHash: hashToken(token),
		CreatedAt: now,
		ExpiresAt: now.Add(sessionTTL),
	}
	if err := domain.ValidateSession(session); err != nil {
		return nil, err
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	// Expired sessions pile up slowly; trim them while we're here.
	_, _ = s.sessionRepo.DeleteExpired(ctx, now)

	return &LoginOutput{User: user, Token: token}, nil
}

// ValidateSession resolves a bearer token to its user. Expired or unknown
// tokens both come back as ErrInvalidSessionToken.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (*domain.User, error) {
	if !IsValidSessionToken(token) {
		return nil, domain.ErrInvalidSessionToken
	}

	session, err := s.sessionRepo.GetByTokenHash(ctx, hashToken(token))
	if err != nil {
		return nil, err
	}

	if session.IsExpired(time.Now().UTC()) {
		_ = s.sessionRepo.Delete(ctx, session.ID)
		return nil, domain.ErrInvalidSessionToken
	}

	return s.userRepo.GetByID(ctx, session.UserID)
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	if !IsValidSessionToken(token) {
		return domain.ErrInvalidSessionToken
	}

	session, err := s.sessionRepo.GetByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSessionToken) {
			return nil
		}
		return err
	}
	return s.sessionRepo.Delete(ctx, session.ID)
}

func generateSessionToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return sessionTokenPrefix + hex.EncodeToString(bytes), nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

func IsValidSessionToken(token string) bool {
	if !strings.HasPrefix(token, sessionTokenPrefix) {
		return false
	}
	hexPart := token[len(sessionTokenPrefix):]
	if len(hexPart) != 64 {
		return false
	}
	for _, c := range hexPart {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
