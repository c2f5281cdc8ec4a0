package auth

import (
	"context"
	"sync"
	"time"

	"opsboard.io/internal/ids"
)

var _ UserStore = (*MemoryUserStore)(nil)

// MemoryUserStore keeps identities in process memory. It is used when no
// database is configured and in tests.
type MemoryUserStore struct {
	mu      sync.Mutex
	byEmail map[string]User
	now     func() time.Time
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{byEmail: make(map[string]User), now: time.Now}
}

func (s *MemoryUserStore) Create(ctx context.Context, u *User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[u.Email]; exists {
		return ErrAlreadyExists
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	if u.Role == "" {
		u.Role = DefaultRole
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now().UTC()
	}
	s.byEmail[u.Email] = *u
	return nil
}

func (s *MemoryUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}
