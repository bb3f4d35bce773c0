package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	sharedauth "ats-backend/internal/shared/auth"
	"ats-backend/internal/shared/telemetry"
	"ats-backend/internal/users"
)

var (
	ErrUserExists          = errors.New("user already exists")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrInvalidInput        = errors.New("invalid input")
)

// Tokens issues and verifies the access/refresh pair.
type Tokens interface {
	IssuePair(userID, email string) (sharedauth.TokenPair, error)
	VerifyRefresh(token string) (sharedauth.Claims, error)
}

type Service struct {
	Users  users.Repo
	Tokens Tokens
	Now    func() time.Time
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Session is returned by register and login.
type Session struct {
	User   users.Profile        `json:"user"`
	Tokens sharedauth.TokenPair `json:"tokens"`
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (Session, error) {
	if len(in.Password) > sharedauth.MaxPasswordBytes {
		return Session{}, fmt.Errorf("%w: password exceeds %d bytes", ErrInvalidInput, sharedauth.MaxPasswordBytes)
	}
	email := NormalizeEmail(in.Email)
	if _, err := s.Users.GetByEmail(ctx, email); err == nil {
		return Session{}, ErrUserExists
	} else if !errors.Is(err, users.ErrNotFound) {
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := sharedauth.HashPassword(in.Password)
	if err != nil {
		if sharedauth.IsHashTooLong(err) {
			return Session{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.Users.Create(ctx, users.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
	})
	if err != nil {
		if errors.Is(err, users.ErrEmailTaken) {
			return Session{}, ErrUserExists
		}
		return Session{}, fmt.Errorf("create user: %w", err)
	}

	pair, err := s.Tokens.IssuePair(user.ID, user.Email)
	if err != nil {
		return Session{}, err
	}
	telemetry.Info("auth.register", map[string]any{"user_id": user.ID})
	return Session{User: user.Profile(), Tokens: pair}, nil
}

// Login returns ErrInvalidCredentials for both unknown emails and wrong passwords.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.Users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if !errors.Is(err, users.ErrNotFound) {
			return Session{}, fmt.Errorf("lookup user: %w", err)
		}
		sharedauth.CheckPassword("", password)
		return Session{}, ErrInvalidCredentials
	}
	if !sharedauth.CheckPassword(user.PasswordHash, password) {
		return Session{}, ErrInvalidCredentials
	}

	now := s.now()
	if err := s.Users.TouchLastLogin(ctx, user.ID, now); err != nil {
		return Session{}, fmt.Errorf("touch last login: %w", err)
	}
	user.LastLoginAt = &now

	pair, err := s.Tokens.IssuePair(user.ID, user.Email)
	if err != nil {
		return Session{}, err
	}
	telemetry.Info("auth.login", map[string]any{"user_id": user.ID})
	return Session{User: user.Profile(), Tokens: pair}, nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (sharedauth.TokenPair, error) {
	claims, err := s.Tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return sharedauth.TokenPair{}, ErrInvalidRefreshToken
	}
	user, err := s.Users.GetByID(ctx, claims.UserID)
	if err != nil {
		return sharedauth.TokenPair{}, ErrInvalidRefreshToken
	}
	pair, err := s.Tokens.IssuePair(user.ID, user.Email)
	if err != nil {
		return sharedauth.TokenPair{}, err
	}
	return pair, nil
}

func (s *Service) Me(ctx context.Context, userID string) (users.Profile, error) {
	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return users.Profile{}, err
	}
	return user.Profile(), nil
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
