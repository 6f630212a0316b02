package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/normanking/taskdeck/internal/logging"
)

// Signin/signup failures surfaced to the transport layer.
var (
	// ErrInvalidCredentials covers both unknown email and wrong
	// password, so callers cannot probe for registered addresses.
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrInvalidEmail    = errors.New("invalid email address")
	ErrPasswordTooWeak = errors.New("password must be at least 8 characters")
)

// AuthResult is returned from signup and signin.
type AuthResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Service implements account signup, signin, and logout.
type Service struct {
	users  UserStore
	tokens *TokenService
	log    *logging.Logger
}

// NewService creates an auth Service.
func NewService(users UserStore, tokens *TokenService, log *logging.Logger) *Service {
	return &Service{users: users, tokens: tokens, log: log}
}

// Signup registers a new account and returns a fresh token.
func (s *Service) Signup(ctx context.Context, email, password string) (*AuthResult, error) {
	if !validEmail(email) {
		return nil, ErrInvalidEmail
	}
	if len(password) < 8 {
		return nil, ErrPasswordTooWeak
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.Create(ctx, email, string(hash))
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	s.log.Info("user signed up", "user_id", user.ID)
	return &AuthResult{Token: token, User: user}, nil
}

// Signin authenticates an existing account and returns a fresh token.
func (s *Service) Signin(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	s.log.Info("user signed in", "user_id", user.ID)
	return &AuthResult{Token: token, User: user}, nil
}

// Logout revokes the presented token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.tokens.Revoke(ctx, token)
}

// Verify delegates to the token service.
func (s *Service) Verify(ctx context.Context, token string) (string, error) {
	return s.tokens.Verify(ctx, token)
}

// validEmail is a shallow shape check: one @ with something on both
// sides and a dot in the domain. Deliverability is not our problem.
func validEmail(email string) bool {
	email = strings.TrimSpace(email)
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	domain := email[at+1:]
	return strings.Contains(domain, ".") && !strings.ContainsAny(email, " \t\n")
}
