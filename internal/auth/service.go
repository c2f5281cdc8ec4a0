package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Service orchestrates registration, login and token verification.
type Service struct {
	users         UserStore
	hasher        *PasswordHasher
	issuer        *TokenIssuer
	authenticator *TokenAuthenticator

	now        func() time.Time
	tokenTTL   time.Duration
	dummyOnce  sync.Once
	dummyHash  string
	dummyError error
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithPasswordHasher replaces the default bcrypt hasher.
func WithPasswordHasher(h *PasswordHasher) ServiceOption {
	return func(s *Service) error {
		if h == nil {
			return errors.New("auth: nil password hasher")
		}
		s.hasher = h
		return nil
	}
}

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// WithTTL overrides the token validity window.
func WithTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
		return nil
	}
}

// NewService wires the store with a hasher and a token issuer/authenticator
// pair sharing secret. A blank secret is rejected with ErrMissingSecret.
func NewService(users UserStore, secret string, opts ...ServiceOption) (*Service, error) {
	if users == nil {
		return nil, errors.New("auth: nil user store")
	}
	svc := &Service{users: users, now: time.Now, tokenTTL: TokenTTL}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	if svc.hasher == nil {
		h, err := NewPasswordHasher()
		if err != nil {
			return nil, err
		}
		svc.hasher = h
	}
	issuer, err := NewTokenIssuer(secret, WithTokenClock(svc.now), WithTokenTTL(svc.tokenTTL))
	if err != nil {
		return nil, err
	}
	authenticator, err := NewTokenAuthenticator(secret, WithTokenClock(svc.now))
	if err != nil {
		return nil, err
	}
	svc.issuer = issuer
	svc.authenticator = authenticator
	return svc, nil
}

// Authenticator exposes the token verifier used by access gates.
func (s *Service) Authenticator() *TokenAuthenticator { return s.authenticator }

// RegisterInput carries the fields required to create an identity.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Result is returned by successful registration and login.
type Result struct {
	User      PublicUser
	Token     string
	ExpiresAt time.Time
}

// Register creates an identity and issues a token for it. A duplicate email
// yields ErrAlreadyExists.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Result, error) {
	if blank(in.Name) || blank(in.Email) || blank(in.Password) {
		return Result{}, fmt.Errorf("%w: name, email, and password are required", ErrInvalidInput)
	}
	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return Result{}, err
	}
	user := &User{Name: in.Name, Email: in.Email, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return Result{}, ErrAlreadyExists
		}
		return Result{}, fmt.Errorf("create user: %w", err)
	}
	return s.issue(user)
}

// Login checks credentials and issues a token. An unknown email and a wrong
// password both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (Result, error) {
	if blank(email) || blank(password) {
		return Result{}, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.burnVerify(ctx, password)
			return Result{}, ErrInvalidCredentials
		}
		return Result{}, fmt.Errorf("find user: %w", err)
	}
	ok, err := s.hasher.Verify(ctx, password, user.PasswordHash)
	if err != nil {
		return Result{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return Result{}, ErrInvalidCredentials
	}
	return s.issue(user)
}

// Authenticate verifies a bearer token. See TokenAuthenticator.Authenticate.
func (s *Service) Authenticate(raw string) (Identity, error) {
	return s.authenticator.Authenticate(raw)
}

func (s *Service) issue(user *User) (Result, error) {
	tok, err := s.issuer.Issue(user)
	if err != nil {
		return Result{}, err
	}
	return Result{User: user.Public(), Token: tok.Token, ExpiresAt: tok.ExpiresAt}, nil
}

// burnVerify spends one bcrypt comparison so an unknown email takes about as
// long as a wrong password.
func (s *Service) burnVerify(ctx context.Context, password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, s.dummyError = s.hasher.Hash(context.WithoutCancel(ctx), "opsboard-unknown-account")
	})
	if s.dummyError != nil {
		return
	}
	_, _ = s.hasher.Verify(ctx, password, s.dummyHash)
}

func blank(v string) bool { return strings.TrimSpace(v) == "" }
