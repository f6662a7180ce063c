package identity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryUsers is an in process Users store. It keeps the same uniqueness
// semantics as the bun repository so tests and examples can run without a
// database.
type MemoryUsers struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*User
	byEmail map[string]uuid.UUID
}

var _ Users = (*MemoryUsers)(nil)

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{
		byID:    map[uuid.UUID]*User{},
		byEmail: map[string]uuid.UUID{},
	}
}

func (s *MemoryUsers) Create(ctx context.Context, user *User) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := normalizeEmail(user.Email)
	if _, taken := s.byEmail[email]; taken {
		return nil, ErrDuplicateEmail
	}

	record := copyUser(user)
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.Email = email
	now := time.Now()
	record.CreatedAt = &now
	record.UpdatedAt = &now

	s.byID[record.ID] = record
	s.byEmail[email] = record.ID

	return copyUser(record), nil
}

func (s *MemoryUsers) GetByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	return copyUser(s.byID[id]), nil
}

func (s *MemoryUsers) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return copyUser(record), nil
}

func (s *MemoryUsers) GetOrCreate(ctx context.Context, user *User) (*User, error) {
	if existing, err := s.GetByEmail(ctx, user.Email); err == nil {
		return existing, nil
	}
	created, err := s.Create(ctx, user)
	if err == nil {
		return created, nil
	}
	if IsDuplicateEmail(err) {
		return s.GetByEmail(ctx, user.Email)
	}
	return nil, err
}

func copyUser(u *User) *User {
	if u == nil {
		return nil
	}
	out := *u
	if u.Age != nil {
		age := *u.Age
		out.Age = &age
	}
	return &out
}
