package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/andy/billable/internal/auth"
	"github.com/andy/billable/internal/domain"
	"github.com/andy/billable/internal/repository"
)

var ErrUsernameTaken = domain.Conflict("username is already taken")

// UserService registers and authenticates users
type UserService interface {
	Register(ctx context.Context, username, email, fullName, password string) (*domain.User, error)
	// Authenticate returns domain.ErrInvalidCredentials for an unknown user
	// or a wrong password
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
	Get(ctx context.Context, userID int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

type userService struct {
	base
}

// NewUserService creates a new user service
func NewUserService(store repository.Store, clock domain.Clock, logger *slog.Logger) UserService {
	return &userService{base: newBase(store, clock, logger)}
}

func (s *userService) Register(ctx context.Context, username, email, fullName, password string) (*domain.User, error) {
	u := domain.NewUser(username, email, fullName, s.now())
	v := domain.NewValidationError()
	if err := u.Validate(); err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			v = ve
		}
	}
	if len(password) < domain.MinPasswordLength {
		v.Add("password", "password must be at least 8 characters")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, s.fail(ctx, "Register", err)
	}
	u.PasswordHash = hash

	err = s.withTx(ctx, "Register", func(st repository.Store) error {
		err := st.Users().Create(ctx, u)
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrUsernameTaken
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", u.ID, "username", u.Username)
	return u, nil
}

func (s *userService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	u, err := s.store.Users().GetByUsername(ctx, username)
	if isNotFound(err) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, s.fail(ctx, "Authenticate", err)
	}

	ok, err := auth.CheckPassword(u.PasswordHash, password)
	if err != nil {
		return nil, s.fail(ctx, "Authenticate", err)
	}
	if !ok {
		s.logger.WarnContext(ctx, "failed login", "username", username)
		return nil, domain.ErrInvalidCredentials
	}
	return u, nil
}

func (s *userService) Get(ctx context.Context, userID int64) (*domain.User, error) {
	u, err := s.store.Users().GetByID(ctx, userID)
	if isNotFound(err) {
		return nil, domain.NotFound("user", userID)
	}
	if err != nil {
		return nil, s.fail(ctx, "GetUser", err)
	}
	return u, nil
}

func (s *userService) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	u, err := s.store.Users().GetByUsername(ctx, username)
	if isNotFound(err) {
		return nil, &domain.NotFoundError{Entity: "user " + username}
	}
	if err != nil {
		return nil, s.fail(ctx, "GetUserByUsername", err)
	}
	return u, nil
}
