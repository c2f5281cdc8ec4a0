package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// TokenTTL is the fixed validity window of an issued token.
	TokenTTL = 8 * time.Hour

	tokenIssuer  = "opsboard"
	bearerScheme = "bearer "
	maxClockSkew = 5 * time.Second
)

// Claims is the JWT payload carried by every issued token.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// IssuedToken is a signed token together with its expiry.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

// TokenOption configures TokenIssuer and TokenAuthenticator.
type TokenOption func(*tokenConfig)

type tokenConfig struct {
	now func() time.Time
	ttl time.Duration
}

// WithTokenClock overrides the time source.
func WithTokenClock(fn func() time.Time) TokenOption {
	return func(c *tokenConfig) {
		if fn != nil {
			c.now = fn
		}
	}
}

// WithTokenTTL overrides the validity window. Only the issuer uses it.
func WithTokenTTL(ttl time.Duration) TokenOption {
	return func(c *tokenConfig) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func newTokenConfig(opts []TokenOption) tokenConfig {
	cfg := tokenConfig{now: time.Now, ttl: TokenTTL}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// TokenIssuer signs HS256 tokens with a process-wide secret.
type TokenIssuer struct {
	secret []byte
	now    func() time.Time
	ttl    time.Duration
}

// NewTokenIssuer fails with ErrMissingSecret when secret is blank.
func NewTokenIssuer(secret string, opts ...TokenOption) (*TokenIssuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrMissingSecret
	}
	cfg := newTokenConfig(opts)
	return &TokenIssuer{secret: []byte(secret), now: cfg.now, ttl: cfg.ttl}, nil
}

// Issue signs a token for an identity that has already been verified.
func (i *TokenIssuer) Issue(u *User) (IssuedToken, error) {
	if u == nil || strings.TrimSpace(u.ID) == "" {
		return IssuedToken{}, fmt.Errorf("%w: identity without id", ErrInvalidInput)
	}
	now := i.now().UTC()
	exp := now.Add(i.ttl)
	claims := Claims{
		UserID: u.ID,
		Email:  u.Email,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("sign token: %w", err)
	}
	return IssuedToken{Token: signed, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// TokenAuthenticator verifies tokens produced by a TokenIssuer sharing the same
// secret. It never consults the user store: a token stays valid under the
// claims it was issued with until it expires.
type TokenAuthenticator struct {
	secret []byte
	now    func() time.Time
	parser *jwt.Parser
}

// NewTokenAuthenticator fails with ErrMissingSecret when secret is blank.
func NewTokenAuthenticator(secret string, opts ...TokenOption) (*TokenAuthenticator, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrMissingSecret
	}
	cfg := newTokenConfig(opts)
	return &TokenAuthenticator{
		secret: []byte(secret),
		now:    cfg.now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(tokenIssuer),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(cfg.now),
		),
	}, nil
}

// Authenticate verifies raw, which may carry a "Bearer " prefix, and returns
// the embedded claims. A blank input yields ErrMissingCredential; every other
// failure yields ErrInvalidCredential.
func (a *TokenAuthenticator) Authenticate(raw string) (Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Identity{}, ErrMissingCredential
	}
	token := StripBearer(raw)
	if token == "" {
		return Identity{}, ErrInvalidCredential
	}

	claims := &Claims{}
	parsed, err := a.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, ErrInvalidCredential
	}
	if err := a.validateClaims(claims); err != nil {
		return Identity{}, ErrInvalidCredential
	}
	return Identity{
		SubjectID: claims.UserID,
		Email:     claims.Email,
		Role:      claims.Role,
		IssuedAt:  claims.IssuedAt.Time.UTC(),
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}, nil
}

func (a *TokenAuthenticator) validateClaims(claims *Claims) error {
	if strings.TrimSpace(claims.UserID) == "" {
		return errors.New("subject missing")
	}
	if claims.Subject != "" && claims.Subject != claims.UserID {
		return errors.New("subject mismatch")
	}
	if claims.IssuedAt == nil {
		return errors.New("issued-at missing")
	}
	if claims.IssuedAt.Time.After(a.now().Add(maxClockSkew)) {
		return errors.New("token issued in the future")
	}
	if !claims.ExpiresAt.Time.After(claims.IssuedAt.Time) {
		return errors.New("token expiry precedes issued-at")
	}
	return nil
}

// StripBearer removes a case-insensitive "Bearer " scheme prefix, if present.
func StripBearer(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) >= len(bearerScheme) && strings.EqualFold(raw[:len(bearerScheme)], bearerScheme) {
		return strings.TrimSpace(raw[len(bearerScheme):])
	}
	if strings.EqualFold(raw, strings.TrimSpace(bearerScheme)) {
		return ""
	}
	return raw
}
