package auth

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/splax/tasktrack/internal/domain"
	"github.com/splax/tasktrack/internal/repository"
	"github.com/splax/tasktrack/pkg/config"
)

type stubUserRepository struct {
	byEmail map[string]*domain.User
	byID    map[string]*domain.User
}

func newStubUserRepository() *stubUserRepository {
	return &stubUserRepository{
		byEmail: make(map[string]*domain.User),
		byID:    make(map[string]*domain.User),
	}
}

func (s *stubUserRepository) CreateUser(ctx context.Context, user *domain.User) error {
	if _, ok := s.byEmail[user.Email]; ok {
		return repository.ErrDuplicateEmail
	}
	s.byEmail[user.Email] = user
	s.byID[user.ID] = user
	return nil
}

func (s *stubUserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	if user, ok := s.byEmail[email]; ok {
		return user, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubUserRepository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	if user, ok := s.byID[id]; ok {
		return user, nil
	}
	return nil, repository.ErrNotFound
}

func testConfig() config.Config {
	return config.Config{
		JWTSecret:        "access-secret",
		JWTRefreshSecret: "refresh-secret",
		AccessTokenTTL:   time.Hour,
		RefreshTokenTTL:  24 * time.Hour,
		BcryptCost:       bcrypt.MinCost,
	}
}

func testService(repo repository.UserRepository) Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(repo, log, testConfig())
}

func TestRegisterHashesPassword(t *testing.T) {
	repo := newStubUserRepository()
	svc := testService(repo)

	user, tokens, err := svc.Register(context.Background(), "Ann", "Ann@X.com", "secret1")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if string(user.PasswordHash) == "secret1" {
		t.Fatal("stored password equals the submitted plaintext")
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte("secret1")); err != nil {
		t.Fatalf("stored hash does not verify the plaintext: %v", err)
	}
	if user.Email != "ann@x.com" {
		t.Fatalf("email not normalized: %q", user.Email)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatal("expected both tokens to be issued")
	}

	claims, err := svc.VerifyAccess(tokens.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess rejected a fresh token: %v", err)
	}
	if claims.UserID != user.ID || claims.Email != user.Email {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestRegisterValidation(t *testing.T) {
	cases := []struct {
		name     string
		userName string
		email    string
		password string
		reason   string
	}{
		{"missing name", "", "a@x.com", "secret1", "Name, email and password are required"},
		{"missing email", "Ann", "", "secret1", "Name, email and password are required"},
		{"missing password", "Ann", "a@x.com", "", "Name, email and password are required"},
		{"short name", "A", "a@x.com", "secret1", "Name must be between 2 and 50 characters"},
		{"short password", "Ann", "a@x.com", "12345", "Password must be at least 6 characters"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := testService(newStubUserRepository())
			_, _, err := svc.Register(context.Background(), tc.userName, tc.email, tc.password)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Reason != tc.reason {
				t.Fatalf("unexpected reason: got %q want %q", ve.Reason, tc.reason)
			}
		})
	}
}

func TestRegisterDuplicateEmailCaseInsensitive(t *testing.T) {
	repo := newStubUserRepository()
	svc := testService(repo)

	if _, _, err := svc.Register(context.Background(), "Ann", "ann@x.com", "secret1"); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	_, _, err := svc.Register(context.Background(), "Ann Again", "ANN@X.COM", "secret2")
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken for duplicate email, got %v", err)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	repo := newStubUserRepository()
	svc := testService(repo)

	if _, _, err := svc.Register(context.Background(), "Ann", "ann@x.com", "secret1"); err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	_, _, unknownErr := svc.Login(context.Background(), "nobody@x.com", "secret1")
	_, _, wrongErr := svc.Login(context.Background(), "ann@x.com", "wrong-password")

	if !errors.Is(unknownErr, ErrInvalidCredentials) {
		t.Fatalf("unknown email: expected ErrInvalidCredentials, got %v", unknownErr)
	}
	if !errors.Is(wrongErr, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", wrongErr)
	}
	if unknownErr.Error() != wrongErr.Error() {
		t.Fatalf("failure messages differ: %q vs %q", unknownErr, wrongErr)
	}
}

func TestLoginMissingFields(t *testing.T) {
	svc := testService(newStubUserRepository())
	_, _, err := svc.Login(context.Background(), "", "")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Reason != "Email and password are required" {
		t.Fatalf("unexpected reason: %q", ve.Reason)
	}
}

func TestTokenSecretsAreNotInterchangeable(t *testing.T) {
	repo := newStubUserRepository()
	svc := testService(repo)

	_, tokens, err := svc.Register(context.Background(), "Ann", "ann@x.com", "secret1")
	if err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	if _, err := svc.VerifyAccess(tokens.RefreshToken); err == nil {
		t.Fatal("refresh token verified as an access token")
	}
	if _, err := svc.VerifyRefresh(tokens.AccessToken); err == nil {
		t.Fatal("access token verified as a refresh token")
	}
	if _, err := svc.VerifyRefresh(tokens.RefreshToken); err != nil {
		t.Fatalf("refresh token failed its own verifier: %v", err)
	}
}
