package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// CredentialStore exposes user credential lookup operations required by the auth service.
type CredentialStore interface {
	GetUserCredentialsByEmail(ctx context.Context, email string) (UserCredentials, error)
	GetUser(ctx context.Context, id string) (User, error)
}

// SessionRepository captures the persistence interactions for issued sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// PasswordVerifier compares a stored hash with a candidate password.
type PasswordVerifier func(hashedPassword, password string) error

// AuthDependencies wires the collaborators of AuthService.
type AuthDependencies struct {
	Credentials    CredentialStore
	Sessions       SessionRepository
	VerifyPassword PasswordVerifier
	TokenGenerator func() string
	Now            func() time.Time
	SessionTTL     time.Duration
}

// AuthService issues, validates and revokes the opaque session tokens used by
// salon accounts.
type AuthService struct {
	deps   AuthDependencies
	tracer trace.Tracer
	logger *slog.Logger
}

func NewAuthService(deps AuthDependencies) *AuthService {
	return NewAuthServiceWithLogger(deps, nil)
}

func NewAuthServiceWithLogger(deps AuthDependencies, logger *slog.Logger) *AuthService {
	if deps.VerifyPassword == nil {
		deps.VerifyPassword = VerifyPassword
	}
	if deps.TokenGenerator == nil {
		deps.TokenGenerator = func() string { return "" }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.SessionTTL <= 0 {
		deps.SessionTTL = 24 * time.Hour
	}
	return &AuthService{deps: deps, tracer: otel.Tracer(tracerName), logger: defaultLogger(logger)}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

func (s *AuthService) configured(op string) error {
	if s.deps.Credentials == nil || s.deps.Sessions == nil {
		return NewError(KindConfiguration, op, "credential store or session repository not configured", nil)
	}
	return nil
}

// Authenticate checks the email and password and issues a new session.
// Unknown emails and wrong passwords both yield ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, params AuthenticateParams) (result AuthenticateResult, err error) {
	const op = "Authenticate"
	if s == nil {
		return result, fmt.Errorf("AuthService is nil")
	}

	ctx, span := s.tracer.Start(ctx, "AuthService.Authenticate")
	defer span.End()

	email := strings.TrimSpace(strings.ToLower(params.Email))
	logger := s.loggerWith(ctx, op, "email", email)
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, ErrorKind(err))
			logger.WarnContext(ctx, "authentication failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "authentication succeeded", "user_id", result.User.ID, "session_id", result.Session.ID)
	}()

	if err = s.configured(op); err != nil {
		return result, err
	}
	if email == "" || params.Password == "" {
		return result, ErrInvalidCredentials
	}

	creds, err := s.deps.Credentials.GetUserCredentialsByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrNotFound):
		return result, ErrInvalidCredentials
	case err != nil:
		return result, NewError(KindPersistenceFailure, op, "failed to load credentials", err)
	}

	if verifyErr := s.deps.VerifyPassword(creds.PasswordHash, params.Password); verifyErr != nil {
		if !errors.Is(verifyErr, ErrInvalidCredentials) {
			logger.WarnContext(ctx, "stored password hash could not be verified", "user_id", creds.User.ID, "error", verifyErr)
		}
		return result, ErrInvalidCredentials
	}
	if NeedsRehash(creds.PasswordHash) {
		logger.InfoContext(ctx, "account uses an outdated password hash", "user_id", creds.User.ID)
	}

	now := s.deps.Now()
	if err = s.deps.Sessions.DeleteExpiredSessions(ctx, now); err != nil {
		return result, persistenceError(op, "failed to prune expired sessions", err)
	}

	session, err := s.deps.Sessions.CreateSession(ctx, s.newSession(creds.User.ID, params.Fingerprint, now))
	if err != nil {
		return result, persistenceError(op, "failed to store session", err)
	}
	return AuthenticateResult{User: creds.User, Session: session}, nil
}

func (s *AuthService) newSession(userID, fingerprint string, now time.Time) Session {
	id := s.deps.TokenGenerator()
	token := s.deps.TokenGenerator()
	if token == "" {
		token = id
	}
	return Session{
		ID:          id,
		UserID:      userID,
		Token:       token,
		Fingerprint: strings.TrimSpace(fingerprint),
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(s.deps.SessionTTL),
	}
}

// RevokeSession invalidates an existing session token.
func (s *AuthService) RevokeSession(ctx context.Context, token string) error {
	const op = "RevokeSession"
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if s.deps.Sessions == nil {
		return NewError(KindConfiguration, op, "session repository not configured", nil)
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidCredentials
	}

	logger := s.loggerWith(ctx, op)
	now := s.deps.Now()

	if _, err := s.deps.Sessions.RevokeSession(ctx, token, now); err != nil {
		if errors.Is(err, ErrNotFound) {
			err = ErrInvalidCredentials
		}
		logger.WarnContext(ctx, "failed to revoke session", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	if err := s.deps.Sessions.DeleteExpiredSessions(ctx, now); err != nil {
		logger.WarnContext(ctx, "failed to prune expired sessions", "error", err)
	}
	logger.InfoContext(ctx, "session revoked")
	return nil
}

// ValidateSession resolves an active session token to its principal.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (principal Principal, err error) {
	const op = "ValidateSession"
	if s == nil {
		return principal, fmt.Errorf("AuthService is nil")
	}

	ctx, span := s.tracer.Start(ctx, "AuthService.ValidateSession")
	defer span.End()

	logger := s.loggerWith(ctx, op)
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, ErrorKind(err))
			logger.WarnContext(ctx, "session validation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "session validated", "principal_id", principal.UserID)
	}()

	if err = s.configured(op); err != nil {
		return principal, err
	}

	session, err := s.activeSession(ctx, token)
	if err != nil {
		return principal, err
	}

	user, err := s.deps.Credentials.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return principal, ErrUnauthorized
		}
		return principal, err
	}
	return Principal{UserID: user.ID, Email: user.Email}, nil
}

// activeSession loads the session for token and rejects revoked or expired ones.
func (s *AuthService) activeSession(ctx context.Context, token string) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, ErrInvalidCredentials
	}

	session, err := s.deps.Sessions.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrUnauthorized
		}
		return Session{}, err
	}

	switch {
	case session.RevokedAt != nil && !session.RevokedAt.IsZero():
		return Session{}, ErrSessionRevoked
	case !session.ExpiresAt.IsZero() && !session.ExpiresAt.After(s.deps.Now()):
		return Session{}, ErrSessionExpired
	}
	return session, nil
}
