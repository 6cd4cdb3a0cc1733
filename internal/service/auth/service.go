package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"log/slog"

	"github.com/google/uuid"

	"github.com/splax/tasktrack/internal/domain"
	"github.com/splax/tasktrack/internal/repository"
	"github.com/splax/tasktrack/pkg/config"
	"github.com/splax/tasktrack/pkg/crypto"
	jwtpkg "github.com/splax/tasktrack/pkg/jwt"
)

// Error strings double as response messages; handlers write them verbatim.
var (
	ErrEmailTaken = errors.New("Email is already registered")
	// ErrInvalidCredentials is returned for both an unknown email and a wrong
	// password so a caller cannot probe which accounts exist.
	ErrInvalidCredentials = errors.New("Invalid credentials")
)

// ValidationError marks client-correctable input problems.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Service handles registration, login and token verification.
type Service struct {
	users  repository.UserRepository
	logger *slog.Logger
	cfg    config.Config
}

// New constructs a Service.
func New(users repository.UserRepository, logger *slog.Logger, cfg config.Config) Service {
	return Service{users: users, logger: logger, cfg: cfg}
}

// TokenPair contains access and refresh tokens.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Register creates a new user and issues a token pair.
func (s Service) Register(ctx context.Context, name, email, password string) (*domain.User, TokenPair, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, TokenPair{}, &ValidationError{Reason: "Name, email and password are required"}
	}
	if n := utf8.RuneCountInString(name); n < 2 || n > 50 {
		return nil, TokenPair{}, &ValidationError{Reason: "Name must be between 2 and 50 characters"}
	}
	if utf8.RuneCountInString(password) < 6 {
		return nil, TokenPair{}, &ValidationError{Reason: "Password must be at least 6 characters"}
	}

	hash, err := crypto.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return nil, TokenPair{}, fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, TokenPair{}, ErrEmailTaken
		}
		return nil, TokenPair{}, err
	}
	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, TokenPair{}, err
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return user, tokens, nil
}

// Login authenticates a user and returns a fresh token pair.
func (s Service) Login(ctx context.Context, email, password string) (*domain.User, TokenPair, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, TokenPair{}, &ValidationError{Reason: "Email and password are required"}
	}
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, TokenPair{}, ErrInvalidCredentials
		}
		return nil, TokenPair{}, err
	}
	if err := crypto.ComparePassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, crypto.ErrMismatch) {
			return nil, TokenPair{}, ErrInvalidCredentials
		}
		return nil, TokenPair{}, fmt.Errorf("compare password: %w", err)
	}
	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, TokenPair{}, err
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return user, tokens, nil
}

// VerifyAccess validates an access token and returns its claims. It does not
// touch the database; resolving the user row is the caller's concern.
func (s Service) VerifyAccess(token string) (*jwtpkg.Claims, error) {
	return jwtpkg.Parse(strings.TrimSpace(token), s.cfg.JWTSecret)
}

// VerifyRefresh validates a refresh token. No route consumes refresh tokens
// yet; the verifier exists so the pair stays symmetric.
func (s Service) VerifyRefresh(token string) (*jwtpkg.Claims, error) {
	return jwtpkg.Parse(strings.TrimSpace(token), s.cfg.JWTRefreshSecret)
}

// GetUser resolves a user by identifier.
func (s Service) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetUserByID(ctx, id)
}

func (s Service) issueTokens(user *domain.User) (TokenPair, error) {
	access, err := jwtpkg.GenerateToken(user.ID, user.Email, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := jwtpkg.GenerateToken(user.ID, user.Email, s.cfg.JWTRefreshSecret, s.cfg.RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// NormalizeEmail trims and lowercases an address so lookups and the unique
// index treat emails case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
