package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
)

// UserRepository captures the persistence operations needed by the user service.
type UserRepository interface {
	CreateUser(ctx context.Context, credentials UserCredentials) error
	GetUser(ctx context.Context, id string) (User, error)
}

// UserService registers customer accounts.
type UserService struct {
	users        UserRepository
	hashPassword PasswordHasher
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewUserService wires dependencies for the user service.
func NewUserService(users UserRepository, hasher PasswordHasher, idGenerator func() string, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(users, hasher, idGenerator, now, nil)
}

// NewUserServiceWithLogger wires dependencies with a specified logger.
func NewUserServiceWithLogger(users UserRepository, hasher PasswordHasher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if hasher == nil {
		hasher = HashPassword
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{users: users, hashPassword: hasher, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

// Register validates input, hashes the password and persists a new user.
func (s *UserService) Register(ctx context.Context, params RegisterParams) (user User, err error) {
	const op = "Register"
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}

	email := strings.ToLower(strings.TrimSpace(params.Email))
	logger := serviceLogger(ctx, s.logger, "UserService", op, "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "registration failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "user registered")
	}()

	vErr := &ValidationError{}
	if email == "" {
		vErr.add("email", "email is required")
	} else if _, parseErr := mail.ParseAddress(email); parseErr != nil {
		vErr.add("email", "email is invalid")
	}
	if params.Password == "" {
		vErr.add("password", "password is required")
	} else if len(params.Password) < MinPasswordLength {
		vErr.add("password", fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if s.users == nil {
		err = NewError(KindConfiguration, op, "user repository not configured", nil)
		return
	}

	hash, hashErr := s.hashPassword(params.Password)
	if hashErr != nil {
		err = fmt.Errorf("hash password: %w", hashErr)
		return
	}

	now := s.now()
	candidate := User{
		ID:          s.idGenerator(),
		Email:       email,
		DisplayName: strings.TrimSpace(params.DisplayName),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err = s.users.CreateUser(ctx, UserCredentials{User: candidate, PasswordHash: hash}); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			err = NewError(KindConflict, op, "user already exists", err)
			return
		}
		err = NewError(KindPersistenceFailure, op, "failed to create user", err)
		return
	}

	user = candidate
	return
}

// GetProfile returns the user identified by the principal.
func (s *UserService) GetProfile(ctx context.Context, principal Principal) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	if principal.UserID == "" {
		return User{}, ErrUnauthorized
	}
	if s.users == nil {
		return User{}, NewError(KindConfiguration, "GetProfile", "user repository not configured", nil)
	}

	user, err := s.users.GetUser(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}
