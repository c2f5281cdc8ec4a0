package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// PasswordHasher derives and checks bcrypt verifiers.
type PasswordHasher struct {
	cost int
	sem  *semaphore.Weighted
}

// HasherOption configures PasswordHasher behavior.
type HasherOption func(*PasswordHasher) error

// WithCost sets the bcrypt work factor.
func WithCost(cost int) HasherOption {
	return func(h *PasswordHasher) error {
		if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
			return fmt.Errorf("auth: bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
		}
		h.cost = cost
		return nil
	}
}

// WithMaxConcurrent caps how many hash computations may run at once.
// Zero or negative leaves hashing unbounded.
func WithMaxConcurrent(n int64) HasherOption {
	return func(h *PasswordHasher) error {
		if n > 0 {
			h.sem = semaphore.NewWeighted(n)
		}
		return nil
	}
}

// NewPasswordHasher constructs a hasher using bcrypt.DefaultCost unless overridden.
func NewPasswordHasher(opts ...HasherOption) (*PasswordHasher, error) {
	h := &PasswordHasher{cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Cost reports the configured work factor.
func (h *PasswordHasher) Cost() int { return h.cost }

// Hash returns a salted bcrypt verifier for password.
func (h *PasswordHasher) Hash(ctx context.Context, password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("%w: password is empty", ErrEncoding)
	}
	release, err := h.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: %v", ErrEncoding, err)
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify compares password with a stored verifier. A mismatch is reported as
// false with a nil error; only a structurally invalid verifier is an error.
func (h *PasswordHasher) Verify(ctx context.Context, password, hash string) (bool, error) {
	if hash == "" {
		return false, fmt.Errorf("%w: verifier is empty", ErrVerifierFormat)
	}
	release, err := h.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer release()

	err = bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword), errors.Is(err, bcrypt.ErrPasswordTooLong):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrVerifierFormat, err)
	}
}

func (h *PasswordHasher) acquire(ctx context.Context) (func(), error) {
	if h.sem == nil {
		return func() {}, nil
	}
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire hash slot: %w", err)
	}
	return func() { h.sem.Release(1) }, nil
}
