package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"titan/internal/model"
	"titan/pkg/util"
)

const minPasswordLength = 6

// ErrInvalidCredentials is returned for an unknown email or a wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// Sessions issues and clears the stored session. identity.Gate implements it.
type Sessions interface {
	SignIn(ctx context.Context, userID string) (string, error)
	SignOut(ctx context.Context) error
}

type Service struct {
	users    UserStore
	sessions Sessions
	logger   *zap.Logger
}

func NewService(users UserStore, sessions Sessions, logger *zap.Logger) *Service {
	return &Service{users: users, sessions: sessions, logger: logger}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%w: invalid email %q", model.ErrValidation, email)
	}
	return email, nil
}

// SignUp registers a new account and signs it in.
func (s *Service) SignUp(ctx context.Context, email, password string) (*model.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", model.ErrValidation, minPasswordLength)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &model.User{Email: email, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if util.ClassifyError(err) == "constraint" {
			return nil, fmt.Errorf("%w: email already registered", model.ErrValidation)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if _, err := s.sessions.SignIn(ctx, u.ID); err != nil {
		return nil, err
	}
	s.logger.Info("User signed up", zap.String("user_id", u.ID))
	return u, nil
}

// SignIn checks credentials and stores a session.
func (s *Service) SignIn(ctx context.Context, email, password string) (*model.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	u, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if !CheckPassword(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if _, err := s.sessions.SignIn(ctx, u.ID); err != nil {
		return nil, err
	}
	s.logger.Info("User signed in", zap.String("user_id", u.ID))
	return u, nil
}

// Logout clears the stored session. Local data is kept.
func (s *Service) Logout(ctx context.Context) error {
	return s.sessions.SignOut(ctx)
}
