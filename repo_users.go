package identity

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type users struct {
	repo repository.Repository[*User]
	db   *bun.DB
}

var _ Users = (*users)(nil)

// NewUsersRepository returns a bun backed Users store. Email uniqueness is
// enforced by the users table constraint; constraint violations surface as
// ErrDuplicateEmail so concurrent duplicate registrations resolve the same
// way as sequential ones.
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
	})

	return &users{
		repo: repo,
		db:   db,
	}
}

func (a *users) Create(ctx context.Context, user *User) (*User, error) {
	created, err := a.repo.Create(ctx, user)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not create user")
	}
	return created, nil
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", normalizeEmail(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user lookup by email failed")
	}

	return record, nil
}

func (a *users) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	record, err := a.repo.GetByID(ctx, id.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user lookup by id failed")
	}
	return record, nil
}

// GetOrCreate resolves an existing user by email or inserts the record. A
// concurrent insert losing the uniqueness race falls back to the lookup, so
// the operation is idempotent for federated logins.
func (a *users) GetOrCreate(ctx context.Context, user *User) (*User, error) {
	existing, err := a.GetByEmail(ctx, user.Email)
	if err == nil {
		return existing, nil
	}
	if !goerrors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	created, err := a.Create(ctx, user)
	if err == nil {
		return created, nil
	}
	if IsDuplicateEmail(err) {
		return a.GetByEmail(ctx, user.Email)
	}
	return nil, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
