package application

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type userRepositoryStub struct {
	users map[string]UserCredentials
	err   error
}

func newUserRepositoryStub() *userRepositoryStub {
	return &userRepositoryStub{users: make(map[string]UserCredentials)}
}

func (r *userRepositoryStub) CreateUser(ctx context.Context, creds UserCredentials) error {
	if r.err != nil {
		return r.err
	}
	for _, existing := range r.users {
		if existing.User.Email == creds.User.Email {
			return ErrAlreadyExists
		}
	}
	r.users[creds.User.ID] = creds
	return nil
}

func (r *userRepositoryStub) GetUser(ctx context.Context, id string) (User, error) {
	creds, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return creds.User, nil
}

func plainHasher(password string) (string, error) {
	return "hashed:" + password, nil
}

func TestUserService_Register(t *testing.T) {
	t.Parallel()

	t.Run("hashes the password and stores a normalized email", func(t *testing.T) {
		t.Parallel()

		repo := newUserRepositoryStub()
		svc := NewUserService(repo, plainHasher, func() string { return "user-1" }, fixedNow)

		user, err := svc.Register(context.Background(), RegisterParams{Email: " New@Example.com ", Password: "longenough"})
		if err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		if user.Email != "new@example.com" {
			t.Fatalf("expected normalized email, got %q", user.Email)
		}
		if got := repo.users["user-1"].PasswordHash; got != "hashed:longenough" {
			t.Fatalf("expected hashed password to be stored, got %q", got)
		}
	})

	t.Run("uses argon2id by default", func(t *testing.T) {
		t.Parallel()

		repo := newUserRepositoryStub()
		svc := NewUserService(repo, nil, func() string { return "user-1" }, fixedNow)
		if _, err := svc.Register(context.Background(), RegisterParams{Email: "a@example.com", Password: "longenough"}); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		hash := repo.users["user-1"].PasswordHash
		if !strings.HasPrefix(hash, "$argon2id$") {
			t.Fatalf("expected argon2id hash, got %q", hash)
		}
		if err := VerifyPassword(hash, "longenough"); err != nil {
			t.Fatalf("expected stored hash to verify, got %v", err)
		}
	})

	t.Run("rejects short passwords and bad emails", func(t *testing.T) {
		t.Parallel()

		svc := NewUserService(newUserRepositoryStub(), plainHasher, nil, nil)
		_, err := svc.Register(context.Background(), RegisterParams{Email: "bad", Password: "short"})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["password"]; !ok {
			t.Fatalf("expected password error")
		}
		if _, ok := vErr.FieldErrors["email"]; !ok {
			t.Fatalf("expected email error")
		}
	})

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		t.Parallel()

		repo := newUserRepositoryStub()
		ids := &sequenceIDs{ids: []string{"u-1", "u-2"}}
		svc := NewUserService(repo, plainHasher, ids.generate, fixedNow)

		params := RegisterParams{Email: "dup@example.com", Password: "longenough"}
		if _, err := svc.Register(context.Background(), params); err != nil {
			t.Fatalf("first Register failed: %v", err)
		}
		_, err := svc.Register(context.Background(), params)
		if KindOf(err) != KindConflict {
			t.Fatalf("expected conflict, got %v", err)
		}
	})

	t.Run("repository failure is a persistence failure", func(t *testing.T) {
		t.Parallel()

		repo := newUserRepositoryStub()
		repo.err = errBoom
		svc := NewUserService(repo, plainHasher, nil, nil)
		_, err := svc.Register(context.Background(), RegisterParams{Email: "a@example.com", Password: "longenough"})
		if KindOf(err) != KindPersistenceFailure {
			t.Fatalf("expected persistence failure, got %v", err)
		}
	})
}

func TestUserService_GetProfile(t *testing.T) {
	t.Parallel()

	repo := newUserRepositoryStub()
	repo.users["user-1"] = UserCredentials{User: User{ID: "user-1", Email: "a@example.com"}}
	svc := NewUserService(repo, plainHasher, nil, nil)

	user, err := svc.GetProfile(context.Background(), Principal{UserID: "user-1"})
	if err != nil || user.Email != "a@example.com" {
		t.Fatalf("unexpected profile %+v %v", user, err)
	}

	if _, err := svc.GetProfile(context.Background(), Principal{UserID: "ghost"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.GetProfile(context.Background(), Principal{}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
