package auth

import "context"

// UserStore persists identity records. Implementations must enforce email
// uniqueness atomically and report a violation as ErrAlreadyExists.
type UserStore interface {
	// Create inserts u, filling in ID, Role and CreatedAt when they are empty.
	Create(ctx context.Context, u *User) error
	// FindByEmail returns ErrNotFound when no identity has exactly this email.
	FindByEmail(ctx context.Context, email string) (*User, error)
}
