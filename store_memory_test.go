package identity_test

import (
	"context"
	"sync"
	"testing"

	"github.com/goliatone/go-identity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryUsers_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns an id and normalizes the email", func(t *testing.T) {
		store := identity.NewMemoryUsers()

		created, err := store.Create(ctx, &identity.User{
			Name:  "Pep Ventura",
			Email: "  PEP@Example.com ",
		})
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, created.ID)
		assert.Equal(t, "pep@example.com", created.Email)
		require.NotNil(t, created.CreatedAt)
		assert.False(t, created.CreatedAt.IsZero())
		require.NotNil(t, created.UpdatedAt)
		assert.False(t, created.UpdatedAt.IsZero())
	})

	t.Run("rejects a duplicate email", func(t *testing.T) {
		store := identity.NewMemoryUsers()

		_, err := store.Create(ctx, &identity.User{Email: "dup@example.com"})
		require.NoError(t, err)

		_, err = store.Create(ctx, &identity.User{Email: "DUP@example.com"})
		assert.ErrorIs(t, err, identity.ErrDuplicateEmail)
	})

	t.Run("returned record is a copy", func(t *testing.T) {
		store := identity.NewMemoryUsers()

		created, err := store.Create(ctx, &identity.User{Email: "copy@example.com", Name: "Original"})
		require.NoError(t, err)

		created.Name = "Mutated"

		stored, err := store.GetByEmail(ctx, "copy@example.com")
		require.NoError(t, err)
		assert.Equal(t, "Original", stored.Name)
	})
}

func TestMemoryUsers_Lookups(t *testing.T) {
	ctx := context.Background()
	store := identity.NewMemoryUsers()

	created, err := store.Create(ctx, &identity.User{Email: "pep@example.com"})
	require.NoError(t, err)

	t.Run("finds by email and id", func(t *testing.T) {
		byEmail, err := store.GetByEmail(ctx, "pep@example.com")
		require.NoError(t, err)
		assert.Equal(t, created.ID, byEmail.ID)

		byID, err := store.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.Email, byID.Email)
	})

	t.Run("misses are not found", func(t *testing.T) {
		_, err := store.GetByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, identity.ErrUserNotFound)

		_, err = store.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, identity.ErrUserNotFound)
	})
}

func TestMemoryUsers_GetOrCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("creates once and finds forever after", func(t *testing.T) {
		store := identity.NewMemoryUsers()

		first, err := store.GetOrCreate(ctx, &identity.User{Email: "once@example.com", Name: "First"})
		require.NoError(t, err)

		second, err := store.GetOrCreate(ctx, &identity.User{Email: "once@example.com", Name: "Second"})
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, "First", second.Name)
	})

	t.Run("concurrent callers converge on one record", func(t *testing.T) {
		store := identity.NewMemoryUsers()

		const workers = 16
		ids := make([]uuid.UUID, workers)

		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				user, err := store.GetOrCreate(ctx, &identity.User{Email: "race@example.com"})
				if assert.NoError(t, err) {
					ids[i] = user.ID
				}
			}(i)
		}
		wg.Wait()

		for i := 1; i < workers; i++ {
			assert.Equal(t, ids[0], ids[i])
		}
	})
}
